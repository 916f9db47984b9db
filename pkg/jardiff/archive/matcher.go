package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPatterns are the archive name patterns used when none are configured.
var DefaultPatterns = []string{"*.jar", "*.zip"}

// Matcher decides from its file name whether an entry is an archive to
// expand. Matching is case-insensitive and uses the base name only.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns. An empty list selects DefaultPatterns.
func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid archive pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// MustMatcher is like NewMatcher but panics on an invalid pattern.
func MustMatcher(patterns ...string) *Matcher {
	m, err := NewMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether name looks like an archive.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return false
	}
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, g := range m.globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns in use.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
