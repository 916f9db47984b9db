package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// PrettyFormatter renders a styled summary for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))
	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Left: "), ValueStyle.Render(r.Root1)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Right:"), ValueStyle.Render(r.Root2)),
	}
	if r.CompareDir != "" {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Path: "), ValueStyle.Render(r.CompareDir)))
	}
	lines = append(lines, fmt.Sprintf("%s %s",
		LabelStyle.Render("Files:"),
		ValueStyle.Render(fmt.Sprintf("%s vs %s (%d and %d archives) in %s",
			humanize.Comma(r.Stats.Files1),
			humanize.Comma(r.Stats.Files2),
			r.Stats.Archives1,
			r.Stats.Archives2,
			formatDurationString(r.Stats.Duration),
		)),
	))
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if r.Identical() {
		return SuccessStyle.Render("  No differences found") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s %-13s %10s %10s  %s\n",
		" ",
		TableHeaderStyle.Render("TYPE"),
		TableHeaderStyle.Render("LEFT"),
		TableHeaderStyle.Render("RIGHT"),
		TableHeaderStyle.Render("PATH"),
	))
	for _, rec := range r.Differences {
		style := KindStyle(rec.Kind)
		path := PathStyle.Render(rec.Path)
		if rec.IsArchive() {
			path += MutedStyle.Render(" [archive]")
		}
		if rec.Error != "" {
			path += " " + ErrorStyle.Render(rec.Error)
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s %s  %s\n",
			style.Render(KindSymbol(rec.Kind)),
			style.Render(padRight(string(rec.Kind), 13)),
			SizeStyle.Render(padLeft(prettySize(rec.Item1), 10)),
			SizeStyle.Render(padLeft(prettySize(rec.Item2), 10)),
			path,
		))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	counts := r.Summary()
	var parts []string
	for _, k := range types.Kinds() {
		if counts[k] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s",
			LabelStyle.Render(string(k)+":"),
			KindStyle(k).Render(humanize.Comma(int64(counts[k]))),
		))
	}
	if len(parts) == 0 {
		parts = append(parts, SuccessStyle.Render("identical"))
	}
	parts = append(parts, MutedStyle.Render("Use -o json for machine-readable output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

func prettySize(it *differ.Item) string {
	switch {
	case it == nil:
		return "-"
	case it.IsDir:
		return "dir"
	default:
		return humanize.IBytes(uint64(it.Size))
	}
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
