package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// ProgressMsg carries a progress event from the running comparison.
type ProgressMsg types.Progress

// ProgressModel renders the comparing phase.
type ProgressModel struct {
	spinner   spinner.Model
	startTime time.Time
	width     int
	height    int
	root1     string
	root2     string

	// Build events arrive from both trees; each side keeps its own count.
	files    map[string]int64
	archives map[string]int64
	last     types.Progress
}

// NewProgressModel creates a progress view for comparing root1 with root2.
func NewProgressModel(root1, root2 string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return ProgressModel{
		spinner:   s,
		startTime: time.Now(),
		width:     80,
		height:    24,
		root1:     root1,
		root2:     root2,
		files:     make(map[string]int64),
		archives:  make(map[string]int64),
	}
}

// SetProgress records a progress event.
func (m *ProgressModel) SetProgress(p types.Progress) {
	if p.Phase == types.PhaseBuild {
		m.files[p.Root] = max(m.files[p.Root], p.FilesSeen)
		m.archives[p.Root] = max(m.archives[p.Root], p.ArchivesExpanded)
	}
	m.last = p
}

// Files returns the files seen across both trees.
func (m ProgressModel) Files() int64 {
	var total int64
	for _, n := range m.files {
		total += n
	}
	return total
}

// Archives returns the archives expanded across both trees.
func (m ProgressModel) Archives() int64 {
	var total int64
	for _, n := range m.archives {
		total += n
	}
	return total
}

// View renders the progress view.
func (m ProgressModel) View() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(mutedTextStyle.Render("  left:  " + truncatePath(m.root1, contentWidth-12)))
	b.WriteString("\n")
	b.WriteString(mutedTextStyle.Render("  right: " + truncatePath(m.root2, contentWidth-12)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s %s: %s",
		m.spinner.View(),
		phaseLabel(m.last.Phase),
		truncatePath(m.last.CurrentPath, contentWidth-24)))
	b.WriteString("\n\n")

	b.WriteString(m.renderProgressBar(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")

	content := b.String()
	if pad := m.height - 2 - (strings.Count(content, "\n") + 1); pad > 0 {
		content += strings.Repeat("\n", pad)
	}
	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

func phaseLabel(p types.Phase) string {
	switch p {
	case types.PhaseCompare:
		return "Comparing"
	case types.PhaseDone:
		return "Finishing"
	default:
		return "Reading"
	}
}

func (m ProgressModel) renderHeader(width int) string {
	title := titleStyle.Render("  jardiff")
	hint := mutedTextStyle.Render("[Ctrl+C to stop]")
	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

// renderProgressBar draws an indeterminate bar; the total is unknown until
// both trees are built.
func (m ProgressModel) renderProgressBar(width int) string {
	barWidth := max(width-4, 10)

	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*2) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}
	pulseWidth := max(barWidth/5, 3)

	var bar strings.Builder
	bar.WriteString("  ")
	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(progressFillStyle.Render("█"))
		} else {
			bar.WriteString(progressEmptyStyle.Render("░"))
		}
	}
	return bar.String()
}

func (m ProgressModel) renderStats(totalWidth int) string {
	boxWidth := max((totalWidth-12)/5, 10)

	boxes := []string{
		renderStatBox("Files", humanize.Comma(m.Files()), boxWidth),
		renderStatBox("Archives", humanize.Comma(m.Archives()), boxWidth),
		renderStatBox("Compared", humanize.Comma(m.last.Compared), boxWidth),
		renderStatBox("Diffs", humanize.Comma(m.last.Differences), boxWidth),
		renderStatBox("Time", formatDuration(time.Since(m.startTime)), boxWidth),
	}

	parts := []string{"  "}
	for i, box := range boxes {
		if i > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, box)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))
	return statsBoxStyle.Width(width).Render(content)
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
