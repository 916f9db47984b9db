package history_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/jardiff/pkg/jardiff/history"
)

func TestNewRejectsEmptyDir(t *testing.T) {
	_, err := history.New("")
	assert.Error(t, err)
}

func TestRecordAndGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	s, err := history.New(dir)
	require.NoError(t, err)

	e := &history.Entry{
		Root1:    "/a",
		Root2:    "/b",
		Summary:  map[string]int{"size_diff": 2},
		Total:    2,
		Duration: time.Second,
	}
	require.NoError(t, s.Record(e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	_, err = os.Stat(filepath.Join(dir, e.ID+".json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, e.ID+".json.tmp"))
	assert.True(t, os.IsNotExist(err))

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "/a", got.Root1)
	assert.Equal(t, 2, got.Summary["size_diff"])
	assert.Equal(t, time.Second, got.Duration)
	assert.False(t, got.Identical())

	got, err = s.Get(e.ID[:12])
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s, err := history.New(t.TempDir())
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(&history.Entry{Root1: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "garbage.json"), []byte("{"), 0o644))

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Root1)
	assert.Equal(t, "a", all[2].Root1)

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListMissingDir(t *testing.T) {
	s, err := history.New(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	entries, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanup(t *testing.T) {
	s, err := history.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Record(&history.Entry{Root1: "old", Timestamp: time.Now().AddDate(0, 0, -40)}))
	require.NoError(t, s.Record(&history.Entry{Root1: "new"}))

	removed, err := s.Cleanup(0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = s.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Root1)
}
