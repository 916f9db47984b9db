// Package report renders comparison results in various output formats
// (pretty, plain, json, jsonl, yaml, template).
//
// Formatters are looked up by name from a registry:
//
//	formatter, err := report.Get("json")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package report

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// Stats describes the work done by a comparison.
type Stats struct {
	// Files1 and Files2 count the files in each tree, archive members included.
	Files1 int64 `json:"files1" yaml:"files1"`
	Files2 int64 `json:"files2" yaml:"files2"`

	// Archives1 and Archives2 count the archives expanded in each tree.
	Archives1 int64 `json:"archives1" yaml:"archives1"`
	Archives2 int64 `json:"archives2" yaml:"archives2"`

	// Duration is the wall time of the comparison.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Result is a complete comparison outcome.
type Result struct {
	// Root1 and Root2 identify the compared sources as given by the user.
	Root1 string
	Root2 string

	// Dir1 and Dir2 are the directories actually compared.
	Dir1 string
	Dir2 string

	// CompareDir is the subpath both roots were narrowed to, if any.
	CompareDir string

	// Differences are the records ordered by logical path.
	Differences []differ.Record

	// Stats describes the comparison.
	Stats Stats

	// Warnings lists non-fatal problems such as unreadable entries or
	// scratch space that could not be removed.
	Warnings []string
}

// Summary counts the differences per kind.
func (r *Result) Summary() map[types.Kind]int {
	return differ.Summary(r.Differences)
}

// Identical reports whether no differences were found.
func (r *Result) Identical() bool {
	return len(r.Differences) == 0
}

// Formatter renders a Result.
type Formatter interface {
	// Format writes the rendered result to w.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry maps names to formatter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds or replaces a formatter factory.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names in sorted order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns the names in the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// summaryMap converts kind counts to string keys, listing every emitted
// kind even when its count is zero.
func summaryMap(r *Result) map[string]int {
	counts := r.Summary()
	out := make(map[string]int, len(types.Kinds()))
	for _, k := range types.Kinds() {
		out[string(k)] = counts[k]
	}
	return out
}

func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.Round(time.Millisecond).String()
}
