// Package launcher opens an external visual diff tool, such as Beyond
// Compare, on two directories.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
)

// ErrToolNotFound is returned when no diff tool is configured or installed.
var ErrToolNotFound = errors.New("no visual diff tool found")

// Placeholders replaced in Args.
const (
	LeftPlaceholder  = "{left}"
	RightPlaceholder = "{right}"
)

// Launcher starts a diff tool without waiting for it.
type Launcher struct {
	// Path is the tool executable. Empty searches the known tools.
	Path string

	// Args are passed to the tool. Empty means the two directories. Any
	// {left} and {right} placeholders are replaced.
	Args []string

	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
}

// New returns a Launcher for path and args.
func New(path string, args []string) *Launcher {
	return &Launcher{Path: path, Args: args, lookPath: exec.LookPath, stat: os.Stat}
}

// Find returns the tool to run: the configured path, then tools found on
// PATH, then the usual install locations for this OS.
func (l *Launcher) Find() (string, error) {
	if l.Path != "" {
		if p, err := l.lookPath(l.Path); err == nil {
			return p, nil
		}
		if _, err := l.stat(l.Path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, l.Path, err)
		}
		return l.Path, nil
	}

	commands, locations := candidates(runtime.GOOS)
	for _, name := range commands {
		if p, err := l.lookPath(name); err == nil {
			return p, nil
		}
	}
	for _, p := range locations {
		if _, err := l.stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrToolNotFound
}

// Launch starts the tool on left and right and returns once it is running.
func (l *Launcher) Launch(left, right string) (string, error) {
	tool, err := l.Find()
	if err != nil {
		return "", err
	}

	args := l.args(left, right)
	// Not CommandContext: the tool outlives the comparison.
	cmd := exec.Command(tool, args...) //nolint:gosec // tool comes from user configuration
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", tool, err)
	}
	logging.Get("launcher").Info("started diff tool", "tool", tool, "pid", cmd.Process.Pid)

	_ = cmd.Process.Release()
	return tool, nil
}

func (l *Launcher) args(left, right string) []string {
	if len(l.Args) == 0 {
		return []string{left, right}
	}
	out := make([]string, len(l.Args))
	for i, a := range l.Args {
		a = strings.ReplaceAll(a, LeftPlaceholder, left)
		out[i] = strings.ReplaceAll(a, RightPlaceholder, right)
	}
	return out
}

// candidates lists commands looked up on PATH and absolute install paths.
func candidates(goos string) (commands, locations []string) {
	switch goos {
	case "windows":
		return []string{"BCompare.exe", "WinMergeU.exe", "meld.exe"},
			[]string{
				`C:\Program Files\Beyond Compare 5\BCompare.exe`,
				`C:\Program Files (x86)\Beyond Compare 5\BCompare.exe`,
				`C:\Program Files\Beyond Compare 4\BCompare.exe`,
				`C:\Program Files\WinMerge\WinMergeU.exe`,
			}
	case "darwin":
		return []string{"bcomp", "bcompare", "opendiff", "meld"},
			[]string{
				"/Applications/Beyond Compare 5.app/Contents/MacOS/bcomp",
				"/Applications/Beyond Compare.app/Contents/MacOS/bcomp",
			}
	default:
		return []string{"bcompare", "meld", "kdiff3"},
			[]string{"/usr/bin/bcompare", "/usr/local/bin/bcompare"}
	}
}
