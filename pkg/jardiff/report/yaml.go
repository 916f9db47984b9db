package report

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
)

type yamlOutput struct {
	Root1       string         `yaml:"root1"`
	Root2       string         `yaml:"root2"`
	CompareDir  string         `yaml:"compare_dir,omitempty"`
	Differences []yamlRecord   `yaml:"differences"`
	Summary     map[string]int `yaml:"summary"`
	Warnings    []string       `yaml:"warnings,omitempty"`
}

type yamlRecord struct {
	Path   string       `yaml:"path"`
	Type   string       `yaml:"type"`
	Item1  *yamlItem    `yaml:"item1"`
	Item2  *yamlItem    `yaml:"item2"`
	Nested []yamlRecord `yaml:"jar_diff,omitempty"`
	Error  string       `yaml:"error,omitempty"`
}

type yamlItem struct {
	Name      string    `yaml:"name"`
	Path      string    `yaml:"path,omitempty"`
	Size      int64     `yaml:"size"`
	ModTime   time.Time `yaml:"mtime"`
	Hash      string    `yaml:"hash,omitempty"`
	IsArchive bool      `yaml:"is_archive,omitempty"`
	IsDir     bool      `yaml:"is_dir,omitempty"`
	InArchive bool      `yaml:"in_archive,omitempty"`
}

// YAMLFormatter writes the result as a YAML document with the same field
// names as the JSON output.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	out := yamlOutput{
		Root1:       r.Root1,
		Root2:       r.Root2,
		CompareDir:  r.CompareDir,
		Differences: toYAMLRecords(r.Differences),
		Summary:     summaryMap(r),
		Warnings:    r.Warnings,
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func toYAMLRecords(records []differ.Record) []yamlRecord {
	out := make([]yamlRecord, len(records))
	for i, rec := range records {
		out[i] = yamlRecord{
			Path:  rec.Path,
			Type:  string(rec.Kind),
			Item1: toYAMLItem(rec.Item1),
			Item2: toYAMLItem(rec.Item2),
			Error: rec.Error,
		}
		if len(rec.Nested) > 0 {
			out[i].Nested = toYAMLRecords(rec.Nested)
		}
	}
	return out
}

func toYAMLItem(it *differ.Item) *yamlItem {
	if it == nil {
		return nil
	}
	return &yamlItem{
		Name:      it.Name,
		Path:      it.Path,
		Size:      it.Size,
		ModTime:   it.ModTime,
		Hash:      it.Hash,
		IsArchive: it.IsArchive,
		IsDir:     it.IsDir,
		InArchive: it.InArchive,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

var _ Formatter = (*YAMLFormatter)(nil)
