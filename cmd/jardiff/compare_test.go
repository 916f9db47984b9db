package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/jamesainslie/jardiff/internal/testutil"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
)

// runCLI executes the root command in an isolated environment and returns
// what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	bindFlags()
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { _ = logging.Close() })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("JARDIFF_LOGGING_PATH", filepath.Join(home, "jardiff.log"))
	t.Setenv("JARDIFF_HISTORY_PATH", filepath.Join(home, "history"))
	t.Setenv("JARDIFF_CACHE_DIR", filepath.Join(home, "cache"))
	return home
}

func TestCompareCommandJSONAndHistory(t *testing.T) {
	home := isolate(t)
	root1, root2 := t.TempDir(), t.TempDir()

	testutil.WriteZip(t, filepath.Join(root1, "app.jar"), testutil.Member("X.class", "1"))
	testutil.WriteZip(t, filepath.Join(root2, "app.jar"), testutil.Member("X.class", "22"))
	testutil.WriteFile(t, filepath.Join(root1, "conf.txt"), "same")
	testutil.WriteFile(t, filepath.Join(root2, "conf.txt"), "same")
	testutil.WriteFile(t, filepath.Join(root2, "new.txt"), "added")

	out, err := runCLI(t, "-n", "-o", "json", root1, root2)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}

	var doc struct {
		Root1       string `json:"root1"`
		Differences []struct {
			Path string `json:"path"`
			Kind string `json:"type"`
		} `json:"differences"`
		Summary map[string]int `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if doc.Root1 != root1 {
		t.Errorf("root1 = %q, want %q", doc.Root1, root1)
	}

	kinds := make(map[string]string)
	for _, d := range doc.Differences {
		kinds[d.Path] = d.Kind
	}
	if kinds["/app.jar/X.class"] != "size_diff" {
		t.Errorf("expected size_diff for the archive member, got %v", kinds)
	}
	if kinds["/new.txt"] != "only_in_2" {
		t.Errorf("expected only_in_2 for /new.txt, got %v", kinds)
	}
	if _, ok := kinds["/conf.txt"]; ok {
		t.Error("equal files must not be reported")
	}

	// Scratch space is released after the run.
	entries, _ := os.ReadDir(filepath.Join(home, "cache"))
	if len(entries) != 0 {
		t.Errorf("expected empty cache dir, found %d entries", len(entries))
	}

	listing, err := runCLI(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(listing, "differences") {
		t.Errorf("expected the run in history:\n%s", listing)
	}
}

func TestCompareCommandUnknownFormat(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "-n", "-o", "xml", t.TempDir(), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestFileCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.properties")
	b := filepath.Join(dir, "b.properties")
	testutil.WriteFile(t, a, "port=1\nhost=x\n")
	testutil.WriteFile(t, b, "port=2\nhost=x\n")

	out, err := runCLI(t, "file", a, b)
	if err != nil {
		t.Fatalf("file failed: %v", err)
	}
	for _, want := range []string{"-port=1", "+port=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigPathCommand(t *testing.T) {
	home := isolate(t)

	out, err := runCLI(t, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	want := filepath.Join(home, "config", "jardiff", "config.yaml")
	if strings.TrimSpace(out) != want {
		t.Errorf("config path = %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestUseBrowserDisabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("no_interactive", true)
	if useBrowser() {
		t.Error("--no-interactive must disable the browser")
	}

	viper.Set("no_interactive", false)
	viper.Set("output", "yaml")
	if useBrowser() {
		t.Error("a non-default output must disable the browser")
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "entry", "entries"); got != "entry" {
		t.Errorf("pluralize(1) = %q", got)
	}
	if got := pluralize(0, "entry", "entries"); got != "entries" {
		t.Errorf("pluralize(0) = %q", got)
	}
	if got := differencesLabel(0); got != "identical" {
		t.Errorf("differencesLabel(0) = %q", got)
	}
	if got := differencesLabel(2); got != "2 differences" {
		t.Errorf("differencesLabel(2) = %q", got)
	}
}
