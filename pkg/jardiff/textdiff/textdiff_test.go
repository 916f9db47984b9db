package textdiff_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/jardiff/internal/testutil"
	"github.com/jamesainslie/jardiff/pkg/jardiff/textdiff"
)

func TestDiffText(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "one", "readme.txt")
	b := filepath.Join(dir, "two", "readme.txt")
	testutil.WriteFile(t, a, "line1\nhello\nline3\n")
	testutil.WriteFile(t, b, "line1\nhello!\nline3\n")

	res, err := textdiff.Diff(a, b, textdiff.Options{})
	require.NoError(t, err)
	assert.Equal(t, textdiff.ModeText, res.Mode)
	assert.Contains(t, res.Diff, "--- readme.txt")
	assert.Contains(t, res.Diff, "+++ readme.txt")
	assert.Contains(t, res.Diff, "-hello\n")
	assert.Contains(t, res.Diff, "+hello!\n")
	assert.Contains(t, res.Diff, " line1\n")
	assert.Equal(t, res.Diff, res.String())
	assert.Equal(t, [2]string{a, b}, res.Files)
}

func TestDiffIdenticalText(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	testutil.WriteFile(t, a, "same\n")
	testutil.WriteFile(t, b, "same\n")

	res, err := textdiff.Diff(a, b, textdiff.Options{})
	require.NoError(t, err)
	assert.Equal(t, textdiff.ModeText, res.Mode)
	assert.Empty(t, res.Diff)
}

func TestDiffBinary(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.txt")
	testutil.WriteBytes(t, a, []byte{0xff, 0xfe, 0x00, 0x81})
	testutil.WriteFile(t, b, "text")

	res, err := textdiff.Diff(a, b, textdiff.Options{})
	require.NoError(t, err)
	assert.Equal(t, textdiff.ModeBinary, res.Mode)
	assert.Empty(t, res.Diff)
	assert.Contains(t, res.String(), "Binary files")
	assert.Contains(t, res.String(), a)
	assert.Contains(t, res.String(), b)
}

func TestDiffProbeBoundary(t *testing.T) {
	dir := t.TempDir()
	// "é" is two bytes; the probe ends after its first byte.
	body := strings.Repeat("a", 9) + "é tail\n"
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	testutil.WriteFile(t, a, body)
	testutil.WriteFile(t, b, body+"more\n")

	res, err := textdiff.Diff(a, b, textdiff.Options{ProbeSize: 10})
	require.NoError(t, err)
	assert.Equal(t, textdiff.ModeText, res.Mode)
	assert.Contains(t, res.Diff, "+more\n")
}

func TestDiffMaxSize(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	testutil.WriteFile(t, a, strings.Repeat("x", 100))
	testutil.WriteFile(t, b, "x")

	res, err := textdiff.Diff(a, b, textdiff.Options{MaxSize: 10})
	require.NoError(t, err)
	assert.Equal(t, textdiff.ModeBinary, res.Mode)
}

func TestDiffMissingFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	testutil.WriteFile(t, a, "x")

	_, err := textdiff.Diff(a, filepath.Join(dir, "missing.txt"), textdiff.Options{})
	assert.ErrorIs(t, err, textdiff.ErrNotFound)
}
