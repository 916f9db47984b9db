package scratch_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/jardiff/pkg/jardiff/scratch"
)

func fastOptions() scratch.Options {
	return scratch.Options{MaxRetries: 3, InitialInterval: time.Millisecond}
}

func TestNewSession(t *testing.T) {
	base := filepath.Join(t.TempDir(), "cache")

	p, err := scratch.NewSession(base, fastOptions())
	require.NoError(t, err)

	info, err := os.Stat(p.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, base, filepath.Dir(p.Dir()))
	assert.True(t, strings.HasPrefix(filepath.Base(p.Dir()), "task_"))

	require.NoError(t, p.Close())
	_, err = os.Stat(p.Dir())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNewSessionRequiresBase(t *testing.T) {
	_, err := scratch.NewSession("", fastOptions())
	assert.Error(t, err)
}

func TestAllocate(t *testing.T) {
	p, err := scratch.NewSession(t.TempDir(), fastOptions())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		dir, err := p.Allocate("app.jar")
		require.NoError(t, err)
		assert.False(t, seen[dir], "directory handed out twice: %s", dir)
		seen[dir] = true
		assert.Equal(t, p.Dir(), filepath.Dir(dir))
		assert.True(t, strings.HasPrefix(filepath.Base(dir), "app.jar-"))
	}

	dir, err := p.Allocate("a/b")
	require.NoError(t, err)
	assert.Equal(t, p.Dir(), filepath.Dir(dir))
}

func TestAllocateAfterClose(t *testing.T) {
	p, err := scratch.NewSession(t.TempDir(), fastOptions())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Allocate("x")
	assert.ErrorIs(t, err, scratch.ErrClosed)
}

func TestRemove(t *testing.T) {
	t.Run("removes nested content", func(t *testing.T) {
		p, err := scratch.NewSession(t.TempDir(), fastOptions())
		require.NoError(t, err)
		defer func() { _ = p.Close() }()

		dir, err := p.Allocate("x")
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "f.txt"), []byte("x"), 0o644))

		require.NoError(t, p.Remove(dir))
		_, err = os.Stat(dir)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("missing path succeeds", func(t *testing.T) {
		p, err := scratch.NewSession(t.TempDir(), fastOptions())
		require.NoError(t, err)
		defer func() { _ = p.Close() }()

		assert.NoError(t, p.Remove(filepath.Join(p.Dir(), "nope")))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		p, err := scratch.NewSession(t.TempDir(), fastOptions())
		require.NoError(t, err)

		calls := 0
		scratch.SetRemoveFunc(p, func(path string) error {
			calls++
			if calls < 3 {
				return &fs.PathError{Op: "unlinkat", Path: path, Err: fs.ErrPermission}
			}
			return os.RemoveAll(path)
		})

		require.NoError(t, p.Remove(p.Dir()))
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		p, err := scratch.NewSession(t.TempDir(), fastOptions())
		require.NoError(t, err)
		dir := p.Dir()
		defer func() { _ = os.RemoveAll(dir) }()

		calls := 0
		scratch.SetRemoveFunc(p, func(path string) error {
			calls++
			return &fs.PathError{Op: "unlinkat", Path: path, Err: fs.ErrPermission}
		})

		err = p.Remove(dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrPermission)
		assert.Equal(t, 4, calls)
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		p, err := scratch.NewSession(t.TempDir(), fastOptions())
		require.NoError(t, err)
		dir := p.Dir()
		defer func() { _ = os.RemoveAll(dir) }()

		boom := errors.New("disk on fire")
		calls := 0
		scratch.SetRemoveFunc(p, func(string) error {
			calls++
			return boom
		})

		err = p.Remove(dir)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestClean(t *testing.T) {
	base := t.TempDir()

	p1, err := scratch.NewSession(base, fastOptions())
	require.NoError(t, err)
	p2, err := scratch.NewSession(base, fastOptions())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(base, "keep-me"), 0o755))

	removed, err := scratch.Clean(base, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(p1.Dir())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(p2.Dir())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(filepath.Join(base, "keep-me"))
	assert.NoError(t, err)

	removed, err = scratch.Clean(filepath.Join(base, "absent"), fastOptions())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
