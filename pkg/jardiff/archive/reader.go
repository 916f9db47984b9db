// Package archive reads JAR and ZIP archives so their interiors can be
// compared like directories.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrUnsafePath is returned for entries whose name would resolve outside the
// extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ErrEntryNotFound is returned by ExtractEntry for names not in the archive.
var ErrEntryNotFound = errors.New("archive entry not found")

// Entry describes one member of an archive.
type Entry struct {
	// Name is the normalized, slash-separated path inside the archive.
	Name string `json:"name"`

	// IsDir reports whether the entry is a directory.
	IsDir bool `json:"is_dir,omitempty"`

	// Size is the uncompressed size in bytes.
	Size int64 `json:"size"`

	// Modified is the entry timestamp recorded in the archive, truncated to
	// whole seconds. Zero when the archive records none.
	Modified time.Time `json:"modified"`
}

// Reader provides access to the members of an opened archive.
type Reader struct {
	path string
	rc   *zip.ReadCloser
}

// Open opens the archive at path.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	return &Reader{path: path, rc: rc}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Entries lists the archive members in central-directory order.
func (r *Reader) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(r.rc.File))
	for _, f := range r.rc.File {
		name, err := cleanName(f.Name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, toEntry(f, name))
	}
	return entries, nil
}

// ExtractAll writes every member below dest and applies the archive
// timestamps to the extracted files.
func (r *Reader) ExtractAll(ctx context.Context, dest string) ([]Entry, error) {
	entries := make([]Entry, 0, len(r.rc.File))
	for _, f := range r.rc.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := cleanName(f.Name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		e := toEntry(f, name)
		if err := extract(f, e, dest); err != nil {
			return nil, fmt.Errorf("extracting %s from %s: %w", name, r.path, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ExtractEntry writes the single member name to dest, which names the
// target file.
func (r *Reader) ExtractEntry(name, dest string) error {
	want, err := cleanName(name)
	if err != nil {
		return err
	}
	for _, f := range r.rc.File {
		got, err := cleanName(f.Name)
		if err != nil || got != want {
			continue
		}
		e := toEntry(f, got)
		if e.IsDir {
			return os.MkdirAll(dest, 0o755)
		}
		return writeFile(f, e, dest)
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// List opens the archive at path and returns its entries.
func List(path string) ([]Entry, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.Entries()
}

// ExtractAll opens the archive at path and extracts it into dest.
func ExtractAll(ctx context.Context, path, dest string) ([]Entry, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.ExtractAll(ctx, dest)
}

func toEntry(f *zip.File, name string) Entry {
	e := Entry{
		Name:  name,
		IsDir: f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/"),
		Size:  int64(f.UncompressedSize64),
	}
	if !f.Modified.IsZero() {
		e.Modified = f.Modified.Truncate(time.Second)
	}
	return e
}

// cleanName normalizes an entry name to a relative slash path. Directory
// entries lose their trailing slash; the root entry becomes "".
func cleanName(name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(n, "/") || (len(n) > 1 && n[1] == ':') {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	for _, part := range strings.Split(n, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
	}
	n = path.Clean(n)
	if n == "." {
		return "", nil
	}
	return n, nil
}

func extract(f *zip.File, e Entry, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(e.Name))
	if e.IsDir {
		return os.MkdirAll(target, 0o755)
	}
	return writeFile(f, e, target)
}

func writeFile(f *zip.File, e Entry, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if !e.Modified.IsZero() {
		if err := os.Chtimes(target, e.Modified, e.Modified); err != nil {
			return err
		}
	}
	return nil
}
