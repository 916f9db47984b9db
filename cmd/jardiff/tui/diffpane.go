package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/textdiff"
)

// DiffPane shows the details of one record and, for text files on disk,
// their unified diff.
type DiffPane struct {
	viewport viewport.Model
	title    string
}

// NewDiffPane creates an empty pane.
func NewDiffPane(width, height int) DiffPane {
	return DiffPane{viewport: viewport.New(width, height)}
}

// SetSize resizes the pane.
func (p *DiffPane) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}

// Show loads rec into the pane and scrolls to the top.
func (p *DiffPane) Show(rec *differ.Record, opts textdiff.Options) {
	p.title = rec.Path
	p.viewport.SetContent(RenderRecord(rec, opts))
	p.viewport.GotoTop()
}

// Update forwards scrolling keys and mouse events to the viewport.
func (p DiffPane) Update(msg tea.Msg) (DiffPane, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// View renders the pane.
func (p DiffPane) View() string {
	return p.viewport.View()
}

// Title returns the logical path being shown.
func (p DiffPane) Title() string {
	return p.title
}

// ScrollPercent reports how far the pane is scrolled.
func (p DiffPane) ScrollPercent() float64 {
	return p.viewport.ScrollPercent()
}

// RenderRecord describes rec. Both sides are listed, followed by the text
// diff when both are regular files on disk. Archive members have no
// stable location once the comparison finished, so they get details only.
func RenderRecord(rec *differ.Record, opts textdiff.Options) string {
	var b strings.Builder
	b.WriteString(diffHeaderStyle.Render(rec.Path))
	b.WriteString("\n")
	b.WriteString(report.KindStyle(rec.Kind).Render(string(rec.Kind)))
	b.WriteString("\n\n")

	b.WriteString(describeItem("left ", rec.Item1))
	b.WriteString(describeItem("right", rec.Item2))

	if rec.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorTextStyle.Render("error: " + rec.Error))
		b.WriteString("\n")
	}
	if n := len(rec.Nested); n > 0 {
		b.WriteString("\n")
		b.WriteString(mutedTextStyle.Render(fmt.Sprintf("%d differences inside the archive", n)))
		b.WriteString("\n")
	}

	if !onDisk(rec.Item1) || !onDisk(rec.Item2) || rec.IsArchive() {
		return b.String()
	}

	res, err := textdiff.Diff(rec.Item1.Path, rec.Item2.Path, opts)
	b.WriteString("\n")
	if err != nil {
		b.WriteString(errorTextStyle.Render("diff: " + err.Error()))
		b.WriteString("\n")
		return b.String()
	}
	if res.Mode == textdiff.ModeBinary {
		b.WriteString(mutedTextStyle.Render(strings.TrimSpace(res.String())))
		b.WriteString("\n")
		return b.String()
	}
	if res.Diff == "" {
		b.WriteString(mutedTextStyle.Render("text content is identical"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(colorizeDiff(res.Diff))
	return b.String()
}

func describeItem(label string, it *differ.Item) string {
	if it == nil {
		return mutedTextStyle.Render(label+": (absent)") + "\n"
	}
	var parts []string
	switch {
	case it.IsDir:
		parts = append(parts, "directory")
	case it.IsArchive:
		parts = append(parts, "archive", humanize.IBytes(uint64(it.Size)))
	default:
		parts = append(parts, humanize.IBytes(uint64(it.Size)))
	}
	if !it.ModTime.IsZero() {
		parts = append(parts, it.ModTime.Format(time.DateTime))
	}
	if it.Hash != "" {
		parts = append(parts, shortHash(it.Hash))
	}
	line := label + ": " + strings.Join(parts, "  ")
	if it.Path != "" {
		line += "\n       " + mutedTextStyle.Render(it.Path)
	} else if it.InArchive {
		line += "\n       " + mutedTextStyle.Render("(archive member)")
	}
	return line + "\n"
}

func onDisk(it *differ.Item) bool {
	return it != nil && it.Path != "" && !it.IsDir && !it.InArchive
}

// shortHash keeps the algorithm prefix and the first 12 hex digits.
func shortHash(h string) string {
	alg, hex, ok := strings.Cut(h, ":")
	if !ok {
		alg, hex = "", h
	}
	if len(hex) > 12 {
		hex = hex[:12]
	}
	if alg == "" {
		return hex
	}
	return alg + ":" + hex
}

func colorizeDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = diffHeaderStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = diffHunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = diffRemoveStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
