// Package history records each comparison as a JSON file so earlier runs
// can be listed and inspected.
package history

import "time"

// Entry describes one comparison run.
type Entry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Root1      string         `json:"root1"`
	Root2      string         `json:"root2"`
	CompareDir string         `json:"compare_dir,omitempty"`
	Algorithm  string         `json:"algorithm,omitempty"`
	Summary    map[string]int `json:"summary"`
	Total      int            `json:"total"`
	Files1     int64          `json:"files1"`
	Files2     int64          `json:"files2"`
	Duration   time.Duration  `json:"duration"`
	Warnings   int            `json:"warnings,omitempty"`
}

// Identical reports whether the run found no differences.
func (e *Entry) Identical() bool {
	return e.Total == 0
}
