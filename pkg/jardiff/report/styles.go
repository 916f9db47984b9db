package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
	ColorAdded   = lipgloss.Color("78")
	ColorRemoved = lipgloss.Color("203")
	ColorChanged = lipgloss.Color("221")
)

// Box styles.
var (
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles.
var (
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	PathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	SizeStyle    = lipgloss.NewStyle().Foreground(ColorPrimary)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted)
)

// KindStyle returns the style used to render a difference kind.
func KindStyle(k types.Kind) lipgloss.Style {
	switch k {
	case types.KindOnlyIn1:
		return lipgloss.NewStyle().Foreground(ColorRemoved)
	case types.KindOnlyIn2:
		return lipgloss.NewStyle().Foreground(ColorAdded)
	case types.KindSizeDiff, types.KindContentDiff:
		return lipgloss.NewStyle().Foreground(ColorChanged)
	case types.KindMtimeDiff:
		return MutedStyle
	case types.KindTypeMismatch:
		return WarningStyle
	case types.KindError:
		return ErrorStyle.Bold(true)
	default:
		return ValueStyle
	}
}

// KindSymbol returns a one-character marker for a difference kind.
func KindSymbol(k types.Kind) string {
	switch k {
	case types.KindOnlyIn1:
		return "-"
	case types.KindOnlyIn2:
		return "+"
	case types.KindSizeDiff, types.KindContentDiff:
		return "~"
	case types.KindMtimeDiff:
		return "t"
	case types.KindTypeMismatch:
		return "!"
	case types.KindError:
		return "x"
	default:
		return " "
	}
}
