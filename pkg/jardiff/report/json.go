package report

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
)

type jsonOutput struct {
	Root1       string          `json:"root1"`
	Root2       string          `json:"root2"`
	CompareDir  string          `json:"compare_dir,omitempty"`
	Differences []differ.Record `json:"differences"`
	Summary     map[string]int  `json:"summary"`
	Stats       jsonStats       `json:"stats"`
	Warnings    []string        `json:"warnings,omitempty"`
}

type jsonStats struct {
	Files1    int64 `json:"files1"`
	Files2    int64 `json:"files2"`
	Archives1 int64 `json:"archives1"`
	Archives2 int64 `json:"archives2"`
}

// JSONFormatter writes the result as one indented JSON document. The
// document holds nothing run-specific, such as timings or scratch
// directories, so unchanged inputs render identically.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	differences := r.Differences
	if differences == nil {
		differences = []differ.Record{}
	}
	out := jsonOutput{
		Root1:       r.Root1,
		Root2:       r.Root2,
		CompareDir:  r.CompareDir,
		Differences: differences,
		Summary:     summaryMap(r),
		Stats: jsonStats{
			Files1:    r.Stats.Files1,
			Files2:    r.Stats.Files2,
			Archives1: r.Stats.Archives1,
			Archives2: r.Stats.Archives2,
		},
		Warnings: r.Warnings,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON record per line. Nested archive
// records are omitted from each line since they appear as lines of their own.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, rec := range r.Differences {
		rec.Nested = nil
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

var _ Formatter = (*JSONLFormatter)(nil)
