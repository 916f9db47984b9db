// Package filter narrows a list of difference records by kind, logical
// path pattern, depth and size, and caps its length. Record order is kept.
package filter

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// Filter defines criteria for selecting difference records.
type Filter struct {
	// Kinds keeps only records of these kinds. Empty keeps all.
	Kinds []types.Kind

	// Include contains glob patterns over logical paths such as
	// "/lib/**.class". If non-empty, records must match at least one.
	Include []string

	// Exclude contains glob patterns. Matching records are dropped.
	Exclude []string

	// MaxDepth drops records more than this many path segments deep,
	// counting archive boundaries as segments. 0 means unlimited.
	MaxDepth int

	// MinSize drops records where neither side is at least this large.
	MinSize int64

	// Limit is the maximum number of records returned. 0 means unlimited.
	Limit int

	include []glob.Glob
	exclude []glob.Glob
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter that keeps everything unless options narrow it.
// Invalid glob patterns are ignored.
func New(opts ...Option) *Filter {
	f := &Filter{}
	for _, opt := range opts {
		opt(f)
	}
	f.include = compile(f.Include)
	f.exclude = compile(f.Exclude)
	return f
}

// WithKinds keeps only the given kinds.
func WithKinds(kinds ...types.Kind) Option {
	return func(f *Filter) {
		f.Kinds = kinds
	}
}

// WithInclude sets the include glob patterns.
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = patterns
	}
}

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithMaxDepth sets the maximum logical path depth.
// Negative values are set to 0.
func WithMaxDepth(depth int) Option {
	return func(f *Filter) {
		if depth < 0 {
			depth = 0
		}
		f.MaxDepth = depth
	}
}

// WithMinSize sets the minimum size in bytes.
// Negative values are set to 0.
func WithMinSize(size int64) Option {
	return func(f *Filter) {
		if size < 0 {
			size = 0
		}
		f.MinSize = size
	}
}

// WithLimit sets the maximum number of records to return.
// Negative values are set to 0 (unlimited).
func WithLimit(limit int) Option {
	return func(f *Filter) {
		if limit < 0 {
			limit = 0
		}
		f.Limit = limit
	}
}

// Active reports whether the filter can drop anything.
func (f *Filter) Active() bool {
	return len(f.Kinds) > 0 || len(f.include) > 0 || len(f.exclude) > 0 ||
		f.MaxDepth > 0 || f.MinSize > 0 || f.Limit > 0
}

// Match reports whether rec passes every criterion except Limit.
func (f *Filter) Match(rec *differ.Record) bool {
	if !f.matchKind(rec) {
		return false
	}
	if f.MaxDepth > 0 && Depth(rec.Path) > f.MaxDepth {
		return false
	}
	if !f.matchSize(rec) {
		return false
	}
	if matchesAny(rec.Path, f.exclude) {
		return false
	}
	if len(f.include) > 0 && !matchesAny(rec.Path, f.include) {
		return false
	}
	return true
}

// Apply returns the records that match, in their original order, capped at
// Limit. Nested archive records of kept records are filtered the same way
// but not counted against Limit. The input is not modified.
func (f *Filter) Apply(records []differ.Record) []differ.Record {
	out := make([]differ.Record, 0, len(records))
	for i := range records {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		if !f.Match(&records[i]) {
			continue
		}
		rec := records[i]
		if len(rec.Nested) > 0 {
			rec.Nested = f.nested(rec.Nested)
		}
		out = append(out, rec)
	}
	return out
}

func (f *Filter) nested(records []differ.Record) []differ.Record {
	var out []differ.Record
	for i := range records {
		if !f.Match(&records[i]) {
			continue
		}
		rec := records[i]
		if len(rec.Nested) > 0 {
			rec.Nested = f.nested(rec.Nested)
		}
		out = append(out, rec)
	}
	return out
}

func (f *Filter) matchKind(rec *differ.Record) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == rec.Kind {
			return true
		}
	}
	return false
}

func (f *Filter) matchSize(rec *differ.Record) bool {
	if f.MinSize <= 0 {
		return true
	}
	for _, it := range []*differ.Item{rec.Item1, rec.Item2} {
		if it != nil && it.Size >= f.MinSize {
			return true
		}
	}
	return false
}

// Depth returns the number of segments in a logical path; "/" is 0.
func Depth(p string) int {
	p = strings.Trim(p, "/")
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

func compile(patterns []string) []glob.Glob {
	var out []glob.Glob
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}

func matchesAny(p string, globs []glob.Glob) bool {
	for _, g := range globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}
