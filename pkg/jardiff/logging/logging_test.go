package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
)

// Tests in this file share the package-level logging state and must not run
// in parallel.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jardiff.log")
	cfg := logging.Config{
		Level: "info",
		Path:  path,
		Components: map[string]string{
			"tree": "debug",
		},
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("tree").Debug("expanding archive", "path", "/lib/app.jar")
	logging.Get("differ").Debug("hidden entry")
	logging.Get("differ").Warn("release failed")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "expanding archive") {
		t.Errorf("component override not applied, log = %q", content)
	}
	if strings.Contains(content, "hidden entry") {
		t.Errorf("debug entry leaked at info level, log = %q", content)
	}
	if !strings.Contains(content, "release failed") {
		t.Errorf("warn entry missing, log = %q", content)
	}
}

func TestInitRejectsInvalidLevels(t *testing.T) {
	dir := t.TempDir()
	if err := logging.Init(logging.Config{Level: "loud", Path: filepath.Join(dir, "a.log")}); err == nil {
		t.Error("expected error for invalid level")
	}
	err := logging.Init(logging.Config{
		Path:       filepath.Join(dir, "b.log"),
		Components: map[string]string{"tree": "chatty"},
	})
	if err == nil {
		t.Error("expected error for invalid component level")
	}
}

func TestInitRotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jardiff.log")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := logging.Init(logging.Config{Path: path, MaxSize: 16, MaxBackups: 2}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer func() { _ = logging.Close() }()

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated backup: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("new log size = %d, want 0", info.Size())
	}
}

func TestGetBeforeInitIsSilent(t *testing.T) {
	logger := logging.Get("quiet")
	logger.Info("goes nowhere")
	if logger.Component() != "quiet" {
		t.Errorf("Component() = %q", logger.Component())
	}
	if logger.With("k", "v").Component() != "quiet" {
		t.Error("With() lost the component")
	}
}
