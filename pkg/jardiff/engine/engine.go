// Package engine runs a complete comparison: it builds both trees
// concurrently, diffs them, releases their scratch space and assembles a
// report.Result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/filter"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/tree"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// Options configures an Engine.
type Options struct {
	// Tree configures how both trees are built.
	Tree tree.Options

	// Differ configures the comparison.
	Differ differ.Options

	// CompareDir narrows both roots to this subpath, e.g. "/opt/app".
	// Logical paths in the result keep the subpath as their prefix.
	CompareDir string

	// KeepScratch leaves expanded archives on disk after Compare returns.
	KeepScratch bool

	// Filter, when set, is applied to the differences.
	Filter *filter.Filter
}

// Engine compares two roots.
type Engine struct {
	opts    Options
	builder *tree.Builder
	differ  *differ.Differ
	logger  *logging.Logger
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	b, err := tree.NewBuilder(opts.Tree)
	if err != nil {
		return nil, err
	}
	if opts.KeepScratch {
		opts.Differ.KeepArchives = true
	}
	return &Engine{
		opts:    opts,
		builder: b,
		differ:  differ.New(opts.Differ),
		logger:  logging.Get("engine"),
	}, nil
}

// Base returns the logical path both trees are compared at: "/" or the
// cleaned compare subpath.
func (e *Engine) Base() string {
	return BasePath(e.opts.CompareDir)
}

// BasePath cleans a compare subpath into a logical path rooted at "/".
func BasePath(compareDir string) string {
	return path.Clean("/" + filepath.ToSlash(compareDir))
}

// Compare builds root1 and root2, diffs them and returns the result.
//
// A root that cannot be built yields a result holding one error record at
// the base path. Scratch cleanup failures become warnings. The returned
// error is non-nil only when ctx is done.
func (e *Engine) Compare(ctx context.Context, root1, root2 string) (*report.Result, error) {
	start := time.Now()
	base := e.Base()
	dir1 := join(root1, base)
	dir2 := join(root2, base)

	result := &report.Result{
		Root1: root1,
		Root2: root2,
		Dir1:  dir1,
		Dir2:  dir2,
	}
	if base != "/" {
		result.CompareDir = base
	}

	e.logger.Info("comparing", "dir1", dir1, "dir2", dir2, "base", base)

	var t1, t2 *tree.Tree
	var err1, err2 error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t1, err1 = e.builder.Build(gctx, dir1)
		return contextError(gctx, err1)
	})
	g.Go(func() error {
		t2, err2 = e.builder.Build(gctx, dir2)
		return contextError(gctx, err2)
	})
	if err := g.Wait(); err != nil {
		e.release(result, t1, t2)
		return nil, err
	}

	if err1 != nil || err2 != nil {
		e.release(result, t1, t2)
		result.Differences = []differ.Record{buildFailure(base, err1, err2)}
		result.Stats.Duration = time.Since(start)
		return result, nil
	}

	result.Stats.Files1, result.Stats.Files2 = t1.Files, t2.Files
	result.Stats.Archives1, result.Stats.Archives2 = t1.Archives, t2.Archives
	result.Warnings = append(result.Warnings, scanWarnings(t1)...)
	result.Warnings = append(result.Warnings, scanWarnings(t2)...)

	records, err := e.differ.Diff(ctx, t1.Root, t2.Root, base)
	switch {
	case errors.Is(err, differ.ErrCleanup):
		result.Warnings = append(result.Warnings, err.Error())
		// Archives memoize their release error; releasing again would
		// only repeat it.
		if !e.opts.KeepScratch {
			e.release(nil, t1, t2)
		}
	case err != nil:
		e.release(result, t1, t2)
		return nil, err
	case !e.opts.KeepScratch:
		e.release(result, t1, t2)
	}

	if e.opts.Filter != nil {
		records = e.opts.Filter.Apply(records)
	}
	result.Differences = records
	result.Stats.Duration = time.Since(start)

	e.logger.Info("comparison complete",
		"differences", len(records),
		"warnings", len(result.Warnings),
		"elapsed", result.Stats.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// release frees the trees' scratch space. Failures are logged and, unless
// result is nil, added to its warnings.
func (e *Engine) release(result *report.Result, trees ...*tree.Tree) {
	for _, t := range trees {
		if err := t.Release(); err != nil {
			e.logger.Warn("failed to release scratch space", "root", t.Path, "error", err)
			if result == nil {
				continue
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", differ.ErrCleanup, err))
		}
	}
}

// join maps a logical base onto a real root.
func join(root, base string) string {
	rel := strings.TrimPrefix(base, "/")
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

func contextError(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func buildFailure(base string, err1, err2 error) differ.Record {
	var msgs []string
	if err1 != nil {
		msgs = append(msgs, "root1: "+err1.Error())
	}
	if err2 != nil {
		msgs = append(msgs, "root2: "+err2.Error())
	}
	return differ.Record{
		Path:  base,
		Kind:  types.KindError,
		Error: strings.Join(msgs, "; "),
	}
}

func scanWarnings(t *tree.Tree) []string {
	out := make([]string, 0, len(t.Errors))
	for _, se := range t.Errors {
		out = append(out, fmt.Sprintf("%s: %s", se.Path, se.Error))
	}
	return out
}
