package tree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/jardiff/internal/testutil"
	"github.com/jamesainslie/jardiff/pkg/jardiff/hasher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/scratch"
	"github.com/jamesainslie/jardiff/pkg/jardiff/tree"
)

func newScratch(t *testing.T) *scratch.Provider {
	t.Helper()
	p, err := scratch.NewSession(t.TempDir(), scratch.Options{MaxRetries: 1, InitialInterval: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newBuilder(t *testing.T, opts tree.Options) *tree.Builder {
	t.Helper()
	b, err := tree.NewBuilder(opts)
	require.NoError(t, err)
	return b
}

func scratchEntries(t *testing.T, p *scratch.Provider) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(p.Dir())
	require.NoError(t, err)
	return entries
}

func TestBuildMissingRoot(t *testing.T) {
	b := newBuilder(t, tree.DefaultOptions())

	tr, err := b.Build(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, tr.Root.Len())
	assert.Zero(t, tr.Files)
}

func TestBuildRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	testutil.WriteFile(t, path, "x")

	_, err := newBuilder(t, tree.DefaultOptions()).Build(context.Background(), path)
	assert.ErrorIs(t, err, tree.ErrNotDirectory)
}

func TestBuildPlainTree(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "readme.txt"), "hello")
	testutil.WriteFile(t, filepath.Join(root, "a", "b", "c.txt"), "deep")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	tr, err := newBuilder(t, tree.DefaultOptions()).Build(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "readme.txt"}, tr.Root.Names(), "empty directories are not part of the tree")
	assert.Equal(t, int64(2), tr.Files)

	n, ok := tr.Root.Lookup("a/b/c.txt")
	require.True(t, ok)
	f, ok := n.(*tree.File)
	require.True(t, ok)
	assert.Equal(t, int64(4), f.Size)
	assert.Equal(t, filepath.Join(root, "a", "b", "c.txt"), f.Path)
	assert.False(t, f.InArchive)

	n, ok = tr.Root.Lookup("a/b")
	require.True(t, ok)
	d, ok := n.(*tree.Directory)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "a", "b"), d.Path)
}

func TestBuildDoesNotHash(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "x.txt"), "hello")

	tr, err := newBuilder(t, tree.DefaultOptions()).Build(context.Background(), root)
	require.NoError(t, err)

	n, _ := tr.Root.Child("x.txt")
	f := n.(*tree.File)
	assert.False(t, f.Hashed())
	assert.Empty(t, f.CachedDigest())

	d1, err := f.Digest()
	require.NoError(t, err)
	assert.True(t, f.Hashed())

	// the digest is memoized, so later content changes are not observed
	testutil.WriteFile(t, f.Path, "changed")
	d2, err := f.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, d1, f.CachedDigest())
}

func TestBuildUsesConfiguredHasher(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "x.txt"), "hello")

	tr, err := newBuilder(t, tree.Options{Hasher: hasher.New(hasher.MD5)}).Build(context.Background(), root)
	require.NoError(t, err)

	n, _ := tr.Root.Child("x.txt")
	d, err := n.(*tree.File).Digest()
	require.NoError(t, err)
	assert.Equal(t, "md5:5d41402abc4b2a76b9719d911017c592", d.String())
}

func TestBuildExpandsArchives(t *testing.T) {
	root := t.TempDir()
	stamp := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	testutil.WriteZip(t, filepath.Join(root, "lib", "App.JAR"),
		testutil.ZipEntry{Name: "com/x/Foo.class", Body: []byte("foo"), Modified: stamp},
		testutil.Member("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
	)
	p := newScratch(t)

	tr, err := newBuilder(t, tree.Options{Scratch: p}).Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.Archives)

	n, ok := tr.Root.Lookup("lib/App.JAR")
	require.True(t, ok)
	a, ok := n.(*tree.Archive)
	require.True(t, ok, "archive extension matching is case-insensitive")
	assert.Equal(t, "App.JAR", a.NodeName())
	assert.DirExists(t, a.ScratchDir())

	n, ok = tr.Root.Lookup("lib/App.JAR/com/x/Foo.class")
	require.True(t, ok)
	f := n.(*tree.File)
	assert.True(t, f.InArchive)
	assert.WithinDuration(t, stamp, f.ModTime, 2*time.Second)
	assert.Equal(t, int64(3), f.Size)

	require.NoError(t, tr.Release())
	assert.True(t, a.Released())
	assert.NoDirExists(t, a.ScratchDir())
	assert.Empty(t, scratchEntries(t, p))
}

func TestBuildNestedArchives(t *testing.T) {
	root := t.TempDir()
	inner := testutil.ZipBytes(t, testutil.Member("inner.txt", "inside"))
	testutil.WriteZip(t, filepath.Join(root, "outer.jar"),
		testutil.ZipEntry{Name: "lib/inner.jar", Body: inner},
	)
	p := newScratch(t)

	tr, err := newBuilder(t, tree.Options{Scratch: p}).Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tr.Archives)

	n, ok := tr.Root.Lookup("outer.jar/lib/inner.jar/inner.txt")
	require.True(t, ok)
	assert.IsType(t, &tree.File{}, n)

	require.NoError(t, tr.Release())
	assert.Empty(t, scratchEntries(t, p))
}

func TestBuildMaxDepth(t *testing.T) {
	root := t.TempDir()
	inner := testutil.ZipBytes(t, testutil.Member("inner.txt", "inside"))
	testutil.WriteZip(t, filepath.Join(root, "outer.jar"), testutil.ZipEntry{Name: "inner.jar", Body: inner})
	p := newScratch(t)

	tr, err := newBuilder(t, tree.Options{Scratch: p, MaxDepth: 1}).Build(context.Background(), root)
	require.NoError(t, err)
	defer func() { _ = tr.Release() }()

	n, ok := tr.Root.Lookup("outer.jar/inner.jar")
	require.True(t, ok)
	assert.IsType(t, &tree.File{}, n)
}

func TestBuildCorruptArchiveFallsBack(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "broken.jar"), "PK but not really")
	p := newScratch(t)

	tr, err := newBuilder(t, tree.Options{Scratch: p}).Build(context.Background(), root)
	require.NoError(t, err)

	n, ok := tr.Root.Child("broken.jar")
	require.True(t, ok)
	f, ok := n.(*tree.File)
	require.True(t, ok)
	assert.False(t, f.InArchive)
	assert.Empty(t, tr.Errors, "expansion failures are not walk errors")
	assert.Empty(t, scratchEntries(t, p), "failed expansion must not leak scratch directories")
}

func TestBuildWithoutScratchKeepsArchivesOpaque(t *testing.T) {
	root := t.TempDir()
	testutil.WriteZip(t, filepath.Join(root, "app.jar"), testutil.Member("a.txt", "a"))

	tr, err := newBuilder(t, tree.DefaultOptions()).Build(context.Background(), root)
	require.NoError(t, err)

	n, _ := tr.Root.Child("app.jar")
	assert.IsType(t, &tree.File{}, n)
}

func TestBuildExclude(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "keep.txt"), "k")
	testutil.WriteFile(t, filepath.Join(root, "cache", "x.bin"), "x")
	testutil.WriteFile(t, filepath.Join(root, "logs", "a.log"), "l")
	testutil.WriteZip(t, filepath.Join(root, "app.jar"),
		testutil.Member("META-INF/MANIFEST.MF", "m"),
		testutil.Member("Main.class", "c"),
	)
	p := newScratch(t)

	b := newBuilder(t, tree.Options{
		Scratch: p,
		Exclude: []string{"/cache", "**.log", "**/META-INF/**"},
	})
	tr, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	defer func() { _ = tr.Release() }()

	assert.Equal(t, []string{"app.jar", "keep.txt"}, tr.Root.Names())
	_, ok := tr.Root.Lookup("app.jar/Main.class")
	assert.True(t, ok)
	_, ok = tr.Root.Lookup("app.jar/META-INF/MANIFEST.MF")
	assert.False(t, ok)
}

func TestNewBuilderRejectsBadOptions(t *testing.T) {
	_, err := tree.NewBuilder(tree.Options{Workers: -1})
	assert.Error(t, err)
}

func TestBuildCancelled(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBuilder(t, tree.DefaultOptions()).Build(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkOrder(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "b.txt"), "b")
	testutil.WriteFile(t, filepath.Join(root, "a", "z.txt"), "z")
	testutil.WriteZip(t, filepath.Join(root, "a.jar"), testutil.Member("in.txt", "i"))
	p := newScratch(t)

	tr, err := newBuilder(t, tree.Options{Scratch: p}).Build(context.Background(), root)
	require.NoError(t, err)
	defer func() { _ = tr.Release() }()

	var visited []string
	require.NoError(t, tr.Root.Walk("/", func(logical string, _ tree.Node) error {
		visited = append(visited, logical)
		return nil
	}))
	assert.Equal(t, []string{"/a", "/a/z.txt", "/a.jar", "/a.jar/in.txt", "/b.txt"}, visited)
}
