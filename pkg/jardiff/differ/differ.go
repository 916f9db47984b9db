// Package differ compares two trees and reports their differences as an
// ordered list of records.
//
// Archives present on both sides are always compared entry by entry, so a
// change to a single class inside a JAR is reported at its logical path,
// for example "/lib/app.jar/com/x/Foo.class". Scratch space held by an
// archive is released as soon as its subtree has been compared.
package differ

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/tree"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// ErrCleanup is returned, together with the complete result, when scratch
// space could not be released.
var ErrCleanup = errors.New("releasing scratch space")

// ErrNilDirectory is returned when either side of a comparison is nil.
var ErrNilDirectory = errors.New("nil directory")

// ArchiveMtimeTolerance is the minimum tolerance applied when either side
// is an archive member, matching the two-second resolution of ZIP times.
const ArchiveMtimeTolerance = 2 * time.Second

// Options configures a Differ.
type Options struct {
	// Workers bounds parallel hashing. Zero uses the number of CPUs; one
	// hashes lazily on the comparing goroutine.
	Workers int

	// CompareMtime reports files with equal content but different
	// modification times as mtime_diff.
	CompareMtime bool

	// MtimeTolerance is the largest mtime difference still considered
	// equal. Zero means one second.
	MtimeTolerance time.Duration

	// KeepArchives leaves archive scratch space in place; the caller
	// releases it through the trees.
	KeepArchives bool

	// OnProgress receives comparison progress.
	OnProgress types.ProgressFunc
}

// Differ compares trees.
type Differ struct {
	opts   Options
	logger *logging.Logger
}

// New returns a Differ.
func New(opts Options) *Differ {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MtimeTolerance <= 0 {
		opts.MtimeTolerance = time.Second
	}
	return &Differ{opts: opts, logger: logging.Get("differ")}
}

// run holds the state of a single Diff call.
type run struct {
	*Differ
	ctx      context.Context
	compared int64
	emitted  int64
	cleanup  *multierror.Error
}

// Diff compares dir1 against dir2. base is the logical path both directories
// sit at, "/" for whole trees. Records come back ordered by ComparePaths.
//
// Per-entry problems become error records and never stop the walk. The
// returned error is non-nil only for a nil directory, a cancelled context,
// or ErrCleanup, in which case the records are still complete.
func (d *Differ) Diff(ctx context.Context, dir1, dir2 *tree.Directory, base string) ([]Record, error) {
	if dir1 == nil || dir2 == nil {
		return nil, ErrNilDirectory
	}
	if base == "" {
		base = "/"
	}
	base = path.Clean("/" + base)

	start := time.Now()
	r := &run{Differ: d, ctx: ctx}
	records, err := r.dirs(dir1, dir2, base)
	if err != nil {
		return nil, err
	}
	SortRecords(records)

	if d.opts.OnProgress != nil {
		d.opts.OnProgress(types.Progress{
			Phase:       types.PhaseDone,
			CurrentPath: base,
			Compared:    r.compared,
			Differences: r.emitted,
		})
	}
	d.logger.Info("comparison finished",
		"base", base,
		"compared", r.compared,
		"differences", len(records),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if cerr := r.cleanup.ErrorOrNil(); cerr != nil {
		return records, fmt.Errorf("%w: %w", ErrCleanup, cerr)
	}
	return records, nil
}

func (r *run) dirs(n1, n2 *tree.Directory, base string) ([]Record, error) {
	names := unionNames(n1, n2)
	if err := r.prehash(n1, n2, names); err != nil {
		return nil, err
	}

	var out []Record
	for _, name := range names {
		if err := r.ctx.Err(); err != nil {
			return nil, err
		}
		p := path.Join(base, name)
		c1, ok1 := n1.Child(name)
		c2, ok2 := n2.Child(name)

		var (
			recs []Record
			err  error
		)
		switch {
		case ok1 && ok2:
			recs, err = r.pair(c1, c2, p)
		case ok1:
			recs, err = r.oneSided(c1, p, types.KindOnlyIn1)
		default:
			recs, err = r.oneSided(c2, p, types.KindOnlyIn2)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// oneSided reports an entry present in one tree only. Directories and
// archive interiors are descended so every file gets its own record.
func (r *run) oneSided(n tree.Node, p string, kind types.Kind) ([]Record, error) {
	empty := tree.NewDirectory("", "")
	descend := func(d *tree.Directory) ([]Record, error) {
		if kind == types.KindOnlyIn1 {
			return r.dirs(d, empty, p)
		}
		return r.dirs(empty, d, p)
	}

	switch v := n.(type) {
	case *tree.Directory:
		return descend(v)
	case *tree.Archive:
		defer r.release(v)
		rec := r.sided(p, kind, v)
		nested, err := descend(v.Contents)
		if err != nil {
			return nil, err
		}
		return append([]Record{rec}, nested...), nil
	default:
		return []Record{r.sided(p, kind, n)}, nil
	}
}

func (r *run) sided(p string, kind types.Kind, n tree.Node) Record {
	if kind == types.KindOnlyIn1 {
		return r.emit(p, kind, n, nil, "")
	}
	return r.emit(p, kind, nil, n, "")
}

// pair compares an entry present in both trees.
func (r *run) pair(c1, c2 tree.Node, p string) ([]Record, error) {
	a1, isArchive1 := c1.(*tree.Archive)
	a2, isArchive2 := c2.(*tree.Archive)
	if isArchive1 {
		defer r.release(a1)
	}
	if isArchive2 && a2 != a1 {
		defer r.release(a2)
	}

	d1, isDir1 := c1.(*tree.Directory)
	d2, isDir2 := c2.(*tree.Directory)
	switch {
	case isDir1 && isDir2:
		return r.dirs(d1, d2, p)
	case isDir1 || isDir2:
		return []Record{r.emit(p, types.KindTypeMismatch, c1, c2, "")}, nil
	}

	kind, msg := r.compareFiles(p, blob(c1), blob(c2))
	var rec *Record
	if kind != types.KindIdentical {
		emitted := r.emit(p, kind, c1, c2, msg)
		rec = &emitted
	}

	if !isArchive1 || !isArchive2 {
		if rec == nil {
			return nil, nil
		}
		return []Record{*rec}, nil
	}

	nested, err := r.dirs(a1.Contents, a2.Contents, p)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nested, nil
	}
	rec.Nested = nested
	return append([]Record{*rec}, nested...), nil
}

// compareFiles classifies two file-like entries: size first, then digest,
// then (optionally) modification time.
func (r *run) compareFiles(p string, f1, f2 *tree.File) (types.Kind, string) {
	r.compared++
	if f1.Err != nil {
		return types.KindError, r.failure(p, "reading", 1, f1)
	}
	if f2.Err != nil {
		return types.KindError, r.failure(p, "reading", 2, f2)
	}
	if f1.Size != f2.Size {
		return types.KindSizeDiff, ""
	}

	h1, err := f1.Digest()
	if err != nil {
		return types.KindError, r.failure(p, "hashing", 1, f1)
	}
	h2, err := f2.Digest()
	if err != nil {
		return types.KindError, r.failure(p, "hashing", 2, f2)
	}
	if h1 != h2 {
		return types.KindContentDiff, ""
	}

	if r.opts.CompareMtime && !r.sameMtime(f1, f2) {
		return types.KindMtimeDiff, ""
	}
	return types.KindIdentical, ""
}

// failure describes a per-entry error without the real path, which for
// archive members points into scratch space. The real path is logged.
func (r *run) failure(p, op string, side int, f *tree.File) string {
	err := f.Err
	if err == nil {
		_, err = f.Digest()
	}
	r.logger.Warn("entry unreadable", "path", p, "side", side, "file", f.Path, "error", err)
	return fmt.Sprintf("%s side %d: %s", op, side, errorCause(err))
}

// errorCause strips file names from path errors.
func errorCause(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Op + ": " + pe.Err.Error()
	}
	return err.Error()
}

func (r *run) sameMtime(f1, f2 *tree.File) bool {
	tolerance := r.opts.MtimeTolerance
	if (f1.InArchive || f2.InArchive) && tolerance < ArchiveMtimeTolerance {
		tolerance = ArchiveMtimeTolerance
	}
	delta := f1.ModTime.Sub(f2.ModTime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= tolerance
}

// prehash computes the digests of same-size file pairs in one directory
// level in parallel. Results are memoized on the files, so the sequential
// pass that follows finds them ready.
func (r *run) prehash(n1, n2 *tree.Directory, names []string) error {
	if r.opts.Workers <= 1 {
		return nil
	}

	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(r.opts.Workers)
	for _, name := range names {
		c1, ok1 := n1.Child(name)
		c2, ok2 := n2.Child(name)
		if !ok1 || !ok2 {
			continue
		}
		f1, f2 := blob(c1), blob(c2)
		if f1 == nil || f2 == nil || f1.Err != nil || f2.Err != nil || f1.Size != f2.Size {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, _ = f1.Digest()
			_, _ = f2.Digest()
			return nil
		})
	}
	return g.Wait()
}

func (r *run) emit(p string, kind types.Kind, n1, n2 tree.Node, msg string) Record {
	r.emitted++
	rec := Record{Path: p, Kind: kind, Error: msg}
	if n1 != nil {
		rec.Item1 = itemOf(n1)
	}
	if n2 != nil {
		rec.Item2 = itemOf(n2)
	}
	if kind == types.KindError {
		r.logger.Warn("comparison error", "path", p, "error", msg)
	}
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(types.Progress{
			Phase:       types.PhaseCompare,
			CurrentPath: p,
			Compared:    r.compared,
			Differences: r.emitted,
		})
	}
	return rec
}

func (r *run) release(a *tree.Archive) {
	if r.opts.KeepArchives {
		return
	}
	if err := a.Release(); err != nil {
		r.logger.Warn("releasing archive scratch space failed", "archive", a.Blob.Path, "error", err)
		r.cleanup = multierror.Append(r.cleanup, err)
	}
}

// blob returns the file behind a file-like node, nil for directories.
func blob(n tree.Node) *tree.File {
	switch v := n.(type) {
	case *tree.File:
		return v
	case *tree.Archive:
		return v.Blob
	default:
		return nil
	}
}

func unionNames(n1, n2 *tree.Directory) []string {
	a, b := n1.Names(), n2.Names()
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
