// Package source turns command line arguments into directories that can be
// compared. Directories are used in place; tarballs such as the output of
// "docker export" are unpacked into scratch space first.
package source

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
)

// ErrUnsupported is returned for a path that is neither a directory nor a
// recognized tarball.
var ErrUnsupported = errors.New("unsupported source")

// Kind identifies how a source was resolved.
type Kind string

const (
	// KindDirectory is a directory compared in place.
	KindDirectory Kind = "directory"

	// KindTarball is a tar file unpacked into scratch space.
	KindTarball Kind = "tarball"

	// KindMissing is a path that does not exist. It compares as an empty tree.
	KindMissing Kind = "missing"
)

// Allocator hands out scratch directories.
type Allocator interface {
	Allocate(prefix string) (string, error)
}

// Source is a resolved argument.
type Source struct {
	// Arg is the argument as given.
	Arg string

	// Dir is the directory to compare.
	Dir string

	// Kind tells how Dir was obtained.
	Kind Kind

	// Entries counts the regular files and directories unpacked from a
	// tarball.
	Entries int

	// Warnings lists tar members that were skipped.
	Warnings []string
}

// Resolver resolves arguments, unpacking tarballs into scratch directories.
type Resolver struct {
	scratch Allocator
	logger  *logging.Logger
}

// NewResolver returns a Resolver. A nil scratch allocator rejects tarballs.
func NewResolver(scratch Allocator) *Resolver {
	return &Resolver{scratch: scratch, logger: logging.Get("source")}
}

// IsTarball reports whether name looks like a tar, tar.gz or tgz file.
func IsTarball(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tar") ||
		strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tgz")
}

// Resolve maps arg to a directory.
func (r *Resolver) Resolve(ctx context.Context, arg string) (*Source, error) {
	info, err := os.Stat(arg)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("source does not exist, comparing as empty", "path", arg)
			return &Source{Arg: arg, Dir: arg, Kind: KindMissing}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", arg, err)
	}

	if info.IsDir() {
		return &Source{Arg: arg, Dir: arg, Kind: KindDirectory}, nil
	}
	if !IsTarball(arg) {
		return nil, fmt.Errorf("%w: %s is not a directory or tarball", ErrUnsupported, arg)
	}
	if r.scratch == nil {
		return nil, fmt.Errorf("%w: no scratch space for %s", ErrUnsupported, arg)
	}

	dest, err := r.scratch.Allocate("src-" + filepath.Base(arg))
	if err != nil {
		return nil, fmt.Errorf("allocating scratch for %s: %w", arg, err)
	}

	src := &Source{Arg: arg, Dir: dest, Kind: KindTarball}
	start := time.Now()
	if err := r.unpack(ctx, arg, src); err != nil {
		return nil, err
	}
	r.logger.Info("unpacked tarball",
		"path", arg,
		"entries", src.Entries,
		"skipped", len(src.Warnings),
		"duration", time.Since(start),
	)
	return src, nil
}

func (r *Resolver) unpack(ctx context.Context, archivePath string, src *Source) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var rd io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("opening gzip stream %s: %w", archivePath, err)
		}
		defer gz.Close()
		rd = gz
	}

	tr := tar.NewReader(rd)
	var stamps []dirStamp
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", archivePath, err)
		}

		name, ok := cleanName(hdr.Name)
		if !ok {
			src.Warnings = append(src.Warnings, fmt.Sprintf("skipped unsafe path %q", hdr.Name))
			continue
		}
		if name == "" {
			continue
		}
		target := filepath.Join(src.Dir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			stamps = append(stamps, dirStamp{target, hdr.ModTime})
			src.Entries++
		case tar.TypeReg:
			if err := writeFile(tr, target, hdr); err != nil {
				return err
			}
			src.Entries++
		case tar.TypeSymlink, tar.TypeLink:
			r.logger.Debug("link not materialized", "name", name, "target", hdr.Linkname)
		default:
			r.logger.Debug("skipping special file", "name", name, "type", hdr.Typeflag)
		}
	}

	// Directory times are set last since writing children changes them.
	for i := len(stamps) - 1; i >= 0; i-- {
		_ = os.Chtimes(stamps[i].path, stamps[i].mtime, stamps[i].mtime)
	}
	return nil
}

type dirStamp struct {
	path  string
	mtime time.Time
}

func writeFile(rd io.Reader, target string, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, rd); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}

// cleanName normalizes a tar member name. It reports false for names that
// would land outside the destination.
func cleanName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || (len(name) > 1 && name[1] == ':') {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", true
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
