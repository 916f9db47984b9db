// Package scratch manages the temporary directories archives are expanded
// into.
//
// A Provider owns one task directory per comparison run, named
// task_<YYYYmmdd_HHMMSS>_<id>, under a cache base directory. Every Allocate
// call returns a fresh directory inside it. Removal retries with exponential
// backoff when the OS reports a transient condition such as a file still
// being held open.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
)

// Defaults for removal retries.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = time.Second
)

const taskPrefix = "task_"

// ErrClosed is returned by Allocate after Close.
var ErrClosed = errors.New("scratch provider closed")

// Options tunes removal behavior.
type Options struct {
	// MaxRetries is the number of retries after the first failed removal.
	MaxRetries int

	// InitialInterval is the delay before the first retry. It doubles on
	// every further retry.
	InitialInterval time.Duration
}

// DefaultOptions returns the default removal settings.
func DefaultOptions() Options {
	return Options{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = DefaultInitialInterval
	}
	return o
}

// Provider allocates and removes scratch directories inside a task directory.
type Provider struct {
	base      string
	task      string
	opts      Options
	removeAll func(string) error
	logger    *logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession creates a task directory under base and returns a Provider
// rooted in it.
func NewSession(base string, opts Options) (*Provider, error) {
	if base == "" {
		return nil, errors.New("scratch base directory is empty")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch base: %w", err)
	}

	name := fmt.Sprintf("%s%s_%s", taskPrefix, time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	task := filepath.Join(base, name)
	if err := os.Mkdir(task, 0o700); err != nil {
		return nil, fmt.Errorf("creating task directory: %w", err)
	}

	p := newProvider(opts)
	p.base = base
	p.task = task
	p.logger.Debug("scratch session created", "dir", task)
	return p, nil
}

func newProvider(opts Options) *Provider {
	return &Provider{
		opts:      opts.withDefaults(),
		removeAll: os.RemoveAll,
		logger:    logging.Get("scratch"),
	}
}

// Dir returns the task directory.
func (p *Provider) Dir() string {
	return p.task
}

// Allocate creates a new, uniquely named directory inside the task
// directory. The prefix becomes part of the name.
func (p *Provider) Allocate(prefix string) (string, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	if prefix == "" {
		prefix = "scratch"
	}
	prefix = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, prefix)

	dir, err := os.MkdirTemp(p.task, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("allocating scratch directory: %w", err)
	}
	return dir, nil
}

// Remove deletes path recursively. Transient failures are retried with
// exponential backoff after restoring write permission on the tree; the
// last error is returned once retries are exhausted. Removing a path that
// does not exist succeeds.
func (p *Provider) Remove(path string) error {
	attempt := 0
	op := func() error {
		attempt++
		err := p.removeAll(path)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		p.logger.Debug("removal failed, retrying", "path", path, "attempt", attempt, "error", err)
		makeWritable(path)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.InitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.opts.InitialInterval << uint(p.opts.MaxRetries)
	b.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithMaxRetries(b, uint64(p.opts.MaxRetries))); err != nil {
		p.logger.Warn("giving up on removal", "path", path, "attempts", attempt, "error", err)
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Close removes the task directory and everything still allocated in it.
// Close is idempotent.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.Remove(p.task)
}

// Clean removes task directories left under base by earlier runs. It
// returns how many were removed.
func Clean(base string, opts Options) (int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading scratch base: %w", err)
	}

	p := newProvider(opts)
	var result *multierror.Error
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), taskPrefix) {
			continue
		}
		if err := p.Remove(filepath.Join(base, e.Name())); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}
	return removed, result.ErrorOrNil()
}

// makeWritable adds owner write permission to every directory under path so
// entries can be unlinked on the next attempt.
func makeWritable(path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		mode := info.Mode().Perm()
		if d.IsDir() {
			_ = os.Chmod(p, mode|0o700)
		} else if mode&0o200 == 0 {
			_ = os.Chmod(p, mode|0o200)
		}
		return nil
	})
}

func isTransient(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return isTransientErrno(err)
}
