package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// PlainFormatter writes an aligned, unstyled table suitable for scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprint(tw, "TYPE\tSIZE1\tSIZE2\tPATH\n"); err != nil {
		return err
	}
	for _, rec := range r.Differences {
		path := rec.Path
		if rec.Kind == types.KindError && rec.Error != "" {
			path += " (" + rec.Error + ")"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Kind, itemSize(rec.Item1), itemSize(rec.Item2), path); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func itemSize(it *differ.Item) string {
	switch {
	case it == nil:
		return "-"
	case it.IsDir:
		return "dir"
	default:
		return types.FormatSize(it.Size)
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
