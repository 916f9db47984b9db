// Package testutil builds filesystem fixtures for jardiff tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// Epoch is a fixed, whole-second timestamp for fixtures.
var Epoch = time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)

// ZipEntry is one member of a fixture archive. A name ending in "/" is a
// directory entry. A zero Modified uses Epoch.
type ZipEntry struct {
	Name     string
	Body     []byte
	Modified time.Time
}

// Member returns a ZipEntry with a string body.
func Member(name, body string) ZipEntry {
	return ZipEntry{Name: name, Body: []byte(body)}
}

// ZipBytes encodes entries as a ZIP archive.
func ZipBytes(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		mod := e.Modified
		if mod.IsZero() {
			mod = Epoch
		}
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: mod}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", e.Name, err)
		}
		if len(e.Body) > 0 {
			if _, err := fw.Write(e.Body); err != nil {
				t.Fatalf("writing zip entry %s: %v", e.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes a ZIP archive with entries to path, creating parents.
func WriteZip(t testing.TB, path string, entries ...ZipEntry) {
	t.Helper()
	WriteBytes(t, path, ZipBytes(t, entries...))
}

// WriteFile writes body to path, creating parents.
func WriteFile(t testing.TB, path, body string) {
	t.Helper()
	WriteBytes(t, path, []byte(body))
}

// WriteBytes writes data to path, creating parents.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
