package tree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/jamesainslie/jardiff/pkg/jardiff/archive"
	"github.com/jamesainslie/jardiff/pkg/jardiff/hasher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// DefaultMaxDepth bounds how many archives deep expansion goes.
const DefaultMaxDepth = 8

// Allocator hands out and removes scratch directories.
type Allocator interface {
	Allocate(prefix string) (string, error)
	Remove(path string) error
}

// Options configures a Builder.
type Options struct {
	// Hasher computes file digests on demand. Nil uses the default algorithm.
	Hasher *hasher.Hasher

	// Scratch provides directories for archive expansion. Nil disables
	// expansion, so archives become plain files.
	Scratch Allocator

	// Matcher selects the files expanded as archives. Nil uses the default
	// patterns.
	Matcher *archive.Matcher

	// Exclude lists glob patterns matched against logical paths such as
	// "/lib/app.jar/META-INF/MANIFEST.MF". Matching entries are skipped.
	Exclude []string

	// Workers is the number of traversal goroutines. Zero lets fastwalk
	// decide.
	Workers int

	// MaxDepth is the maximum archive nesting that is expanded.
	MaxDepth int

	// FollowSymlinks includes symlinked files and descends into symlinked
	// directories.
	FollowSymlinks bool

	// OnProgress receives build progress. It is called concurrently.
	OnProgress types.ProgressFunc
}

// DefaultOptions returns options with default archive patterns and depth.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth}
}

// Builder builds trees from directories on disk.
type Builder struct {
	opts    Options
	exclude []glob.Glob
	logger  *logging.Logger
}

// NewBuilder validates opts and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Matcher == nil {
		m, err := archive.NewMatcher(nil)
		if err != nil {
			return nil, err
		}
		opts.Matcher = m
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must be non-negative, got %d", opts.Workers)
	}

	b := &Builder{opts: opts, logger: logging.Get("tree")}
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		b.exclude = append(b.exclude, g)
	}
	return b, nil
}

// buildState collects counters and errors for one Build call.
type buildState struct {
	root     string
	files    atomic.Int64
	archives atomic.Int64
}

// Build walks root and returns its tree. A root that does not exist yields
// an empty tree; a root that is not a directory is an error. Unreadable
// entries are kept as files with Err set and listed in Tree.Errors.
// Archives are expanded into scratch directories owned by the tree; call
// Tree.Release when done.
func (b *Builder) Build(ctx context.Context, root string) (*Tree, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		b.logger.Debug("root does not exist, using empty tree", "root", root)
		return &Tree{Root: NewDirectory("", root), Path: root}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	start := time.Now()
	st := &buildState{root: root}
	dir, errs, err := b.buildDir(ctx, st, root, "", nil, 0)
	if err != nil {
		_ = ReleaseAll(dir)
		return nil, err
	}
	dir.Name = ""

	t := &Tree{
		Root:     dir,
		Path:     root,
		Files:    st.files.Load(),
		Archives: st.archives.Load(),
		Errors:   errs,
	}
	b.logger.Info("tree built",
		"root", root,
		"files", t.Files,
		"archives", t.Archives,
		"errors", len(errs),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return t, nil
}

// buildDir walks realRoot into a Directory. logicalBase is the logical path
// realRoot is mounted at; stamps, when non-nil, marks an archive interior
// and supplies the recorded timestamps by relative path. The directory is
// returned even on error so the caller can release what was expanded.
func (b *Builder) buildDir(
	ctx context.Context,
	st *buildState,
	realRoot, logicalBase string,
	stamps map[string]time.Time,
	depth int,
) (*Directory, []types.ScanError, error) {
	dir := NewDirectory(path.Base("/"+logicalBase), realRoot)

	var (
		mu   sync.Mutex
		errs []types.ScanError
	)
	addError := func(p string, err error) {
		mu.Lock()
		errs = append(errs, types.ScanError{Path: p, Error: err.Error()})
		mu.Unlock()
	}

	conf := fastwalk.Config{
		Follow:     b.opts.FollowSymlinks,
		NumWorkers: b.opts.Workers,
	}

	walkErr := fastwalk.Walk(&conf, realRoot, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			b.logger.Debug("walk error", "path", p, "error", err)
			addError(p, err)
			return nil
		}
		if p == realRoot {
			return nil
		}

		rel, relErr := filepath.Rel(realRoot, p)
		if relErr != nil {
			addError(p, relErr)
			return nil
		}
		rel = filepath.ToSlash(rel)
		logical := path.Join("/", logicalBase, rel)

		if b.excluded(logical) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, ok, infoErr := b.regularInfo(p, d)
		if !ok {
			return nil
		}

		name := path.Base(rel)
		var node Node
		if infoErr != nil {
			addError(p, infoErr)
			node = &File{Name: name, Path: p, Err: infoErr, hasher: b.opts.Hasher, InArchive: stamps != nil}
		} else {
			f := NewFile(name, p, info.Size(), info.ModTime(), b.opts.Hasher)
			if stamps != nil {
				f.InArchive = true
				if ts, ok := stamps[rel]; ok {
					f.ModTime = ts
				}
			}
			node = f
			if b.opts.Matcher.Match(name) {
				if a, ok := b.expand(ctx, st, f, logical, depth); ok {
					node = a
				}
			}
		}

		mu.Lock()
		insErr := dir.insert(rel, node)
		mu.Unlock()
		if insErr != nil {
			addError(p, insErr)
			if a, ok := node.(*Archive); ok {
				_ = a.Release()
			}
			return nil
		}

		files := st.files.Add(1)
		if b.opts.OnProgress != nil {
			b.opts.OnProgress(types.Progress{
				Phase:            types.PhaseBuild,
				Root:             st.root,
				CurrentPath:      logical,
				FilesSeen:        files,
				ArchivesExpanded: st.archives.Load(),
			})
		}
		return nil
	})

	return dir, errs, walkErr
}

// regularInfo reports whether the entry is a regular file (after following
// a symlink when enabled) and returns its FileInfo.
func (b *Builder) regularInfo(p string, d fs.DirEntry) (fs.FileInfo, bool, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !b.opts.FollowSymlinks {
			return nil, false, nil
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, true, err
		}
		return info, info.Mode().IsRegular(), nil
	}
	if !d.Type().IsRegular() {
		return nil, false, nil
	}
	info, err := d.Info()
	return info, true, err
}

func (b *Builder) excluded(logical string) bool {
	for _, g := range b.exclude {
		if g.Match(logical) {
			return true
		}
	}
	return false
}

// expand extracts the archive f into a scratch directory and builds its
// interior. On any failure the scratch space is released and ok is false,
// leaving f to be treated as an opaque file.
func (b *Builder) expand(ctx context.Context, st *buildState, f *File, logical string, depth int) (*Archive, bool) {
	if b.opts.Scratch == nil {
		return nil, false
	}
	if depth >= b.opts.MaxDepth {
		b.logger.Warn("archive nesting too deep, not expanding", "path", logical, "depth", depth)
		return nil, false
	}

	dir, err := b.opts.Scratch.Allocate(f.Name)
	if err != nil {
		b.logger.Warn("allocating scratch directory failed", "path", logical, "error", err)
		return nil, false
	}

	entries, err := archive.ExtractAll(ctx, f.Path, dir)
	if err != nil {
		b.logger.Warn("archive expansion failed, comparing as plain file", "path", logical, "error", err)
		b.discard(dir)
		return nil, false
	}

	stamps := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if !e.IsDir && !e.Modified.IsZero() {
			stamps[e.Name] = e.Modified
		}
	}

	contents, errs, err := b.buildDir(ctx, st, dir, strings.TrimPrefix(logical, "/"), stamps, depth+1)
	if err == nil && len(errs) > 0 {
		err = fmt.Errorf("%d unreadable entries, first %s: %s", len(errs), errs[0].Path, errs[0].Error)
	}
	if err != nil {
		b.logger.Warn("archive interior unreadable, comparing as plain file", "path", logical, "error", err)
		if relErr := ReleaseAll(contents); relErr != nil {
			b.logger.Warn("releasing nested archives failed", "path", logical, "error", relErr)
		}
		b.discard(dir)
		return nil, false
	}

	st.archives.Add(1)
	b.logger.Debug("archive expanded", "path", logical, "entries", len(entries), "dir", dir)
	return NewArchive(f, contents, dir, b.opts.Scratch.Remove), true
}

func (b *Builder) discard(dir string) {
	if err := b.opts.Scratch.Remove(dir); err != nil {
		b.logger.Warn("removing scratch directory failed", "dir", dir, "error", err)
	}
}

// insert places n at the slash-separated relative path rel, creating
// intermediate directories. Must be called with the builder lock held.
func (d *Directory) insert(rel string, n Node) error {
	parts := strings.Split(rel, "/")
	cur := d
	for i, part := range parts[:len(parts)-1] {
		realPath := ""
		if d.Path != "" {
			realPath = filepath.Join(append([]string{d.Path}, parts[:i+1]...)...)
		}
		next, err := cur.ensureDir(part, realPath)
		if err != nil {
			return err
		}
		cur = next
	}
	return cur.Add(n)
}
