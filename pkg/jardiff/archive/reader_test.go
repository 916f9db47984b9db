package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/jardiff/internal/testutil"
	"github.com/jamesainslie/jardiff/pkg/jardiff/archive"
)

func TestList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.jar")
	testutil.WriteZip(t, path,
		testutil.ZipEntry{Name: "META-INF/"},
		testutil.Member("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
		testutil.Member("com/x/Foo.class", "cafebabe"),
	)

	entries, err := archive.List(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "META-INF", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "com/x/Foo.class", entries[2].Name)
	assert.Equal(t, int64(8), entries[2].Size)
	assert.False(t, entries[2].IsDir)
}

func TestListRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jar")
	testutil.WriteFile(t, path, "definitely not a zip")

	_, err := archive.List(path)
	assert.Error(t, err)
}

func TestExtractAllPreservesTimestamps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	stamp := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	testutil.WriteZip(t, path,
		testutil.ZipEntry{Name: "a.txt", Body: []byte("alpha"), Modified: stamp},
		testutil.ZipEntry{Name: "nested/b.txt", Body: []byte("beta"), Modified: stamp.Add(time.Hour)},
	)

	dest := filepath.Join(dir, "out")
	entries, err := archive.ExtractAll(context.Background(), path, dest)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.WithinDuration(t, stamp, entries[0].Modified, 2*time.Second)
	assert.Equal(t, 0, entries[0].Modified.Nanosecond())

	data, err := os.ReadFile(filepath.Join(dest, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))

	info, err := os.Stat(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.WithinDuration(t, stamp, info.ModTime(), 2*time.Second)
}

func TestExtractAllRejectsUnsafeNames(t *testing.T) {
	for _, name := range []string{"../evil.txt", "a/../../evil.txt", "/etc/passwd"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "evil.zip")
			testutil.WriteZip(t, path, testutil.Member(name, "x"))

			_, err := archive.ExtractAll(context.Background(), path, filepath.Join(dir, "out"))
			assert.Error(t, err)
			_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestExtractAllHonorsContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	testutil.WriteZip(t, path, testutil.Member("a.txt", "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := archive.ExtractAll(ctx, path, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	testutil.WriteZip(t, path,
		testutil.Member("a.txt", "alpha"),
		testutil.Member("b/c.txt", "gamma"),
	)

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	target := filepath.Join(dir, "single", "c.txt")
	require.NoError(t, r.ExtractEntry("b/c.txt", target))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "gamma", string(data))

	err = r.ExtractEntry("missing.txt", target)
	assert.ErrorIs(t, err, archive.ErrEntryNotFound)

	err = r.ExtractEntry("../outside.txt", target)
	assert.ErrorIs(t, err, archive.ErrUnsafePath)
}
