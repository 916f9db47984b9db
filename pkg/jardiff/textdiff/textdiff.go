// Package textdiff renders the difference between two individual files:
// a unified diff for text, a binary marker otherwise.
package textdiff

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Defaults for Options.
const (
	DefaultProbeSize = 1024
	DefaultContext   = 3
	DefaultMaxSize   = 16 * 1024 * 1024
)

// ErrNotFound is returned when either file does not exist.
var ErrNotFound = errors.New("file not found")

// Mode tells whether a Result holds a text diff or a binary marker.
type Mode string

// Result modes.
const (
	ModeText   Mode = "text"
	ModeBinary Mode = "binary"
)

// Result is the rendered difference between two files.
type Result struct {
	// Mode is text or binary.
	Mode Mode `json:"type"`

	// Diff is the unified diff, empty for binary files and identical text.
	Diff string `json:"diff,omitempty"`

	// Files names the compared files in order.
	Files [2]string `json:"files"`
}

// String renders the result for a terminal.
func (r *Result) String() string {
	if r.Mode == ModeBinary {
		return fmt.Sprintf("Binary files %s and %s differ\n", r.Files[0], r.Files[1])
	}
	return r.Diff
}

// Options tunes Diff.
type Options struct {
	// ProbeSize is the number of leading bytes checked for valid UTF-8.
	ProbeSize int

	// Context is the number of unchanged lines around each hunk.
	Context int

	// MaxSize treats larger files as binary. Zero means DefaultMaxSize.
	MaxSize int64
}

func (o Options) withDefaults() Options {
	if o.ProbeSize <= 0 {
		o.ProbeSize = DefaultProbeSize
	}
	if o.Context < 0 {
		o.Context = 0
	} else if o.Context == 0 {
		o.Context = DefaultContext
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	return o
}

// Diff compares the files at path1 and path2.
func Diff(path1, path2 string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{Files: [2]string{path1, path2}}

	text1, err := isText(path1, opts)
	if err != nil {
		return nil, err
	}
	text2, err := isText(path2, opts)
	if err != nil {
		return nil, err
	}
	if !text1 || !text2 {
		res.Mode = ModeBinary
		return res, nil
	}

	a, err := os.ReadFile(path1)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path1, err)
	}
	b, err := os.ReadFile(path2)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path2, err)
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: filepath.Base(path1),
		ToFile:   filepath.Base(path2),
		Context:  opts.Context,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("rendering diff: %w", err)
	}
	res.Mode = ModeText
	res.Diff = out
	return res, nil
}

// isText reports whether the first ProbeSize bytes of the file decode as
// UTF-8. A rune cut off by the probe boundary does not count against it.
func isText(path string, opts Options) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > opts.MaxSize {
		return false, nil
	}

	buf := make([]byte, opts.ProbeSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	probe := buf[:n]
	if n == opts.ProbeSize {
		probe = trimPartialRune(probe)
	}
	return utf8.Valid(probe), nil
}

// trimPartialRune drops an incomplete multi-byte sequence at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < 0x80 {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}
