package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/textdiff"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return out, cmd
}

func browsing(t *testing.T) Model {
	t.Helper()
	m := NewModel(Options{Root1: "left", Root2: "right"})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, CompareCompleteMsg{Result: &report.Result{
		Root1:       "left",
		Root2:       "right",
		Differences: testRecords(),
	}})
	return m
}

func TestModelCompareComplete(t *testing.T) {
	m := browsing(t)

	if m.state != StateBrowse {
		t.Fatalf("expected browse state, got %d", m.state)
	}
	if m.tree.Len() != 8 {
		t.Errorf("expected 8 rows, got %d", m.tree.Len())
	}
	if m.Result() == nil {
		t.Error("expected result to be kept")
	}

	view := m.View()
	for _, want := range []string{"jardiff", "left", "right", "size_diff 1", "only_in_2 1", "error 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestModelCompareFailed(t *testing.T) {
	m := NewModel(Options{})
	m, _ = update(t, m, CompareCompleteMsg{Err: errors.New("boom")})

	if m.state != StateFailed {
		t.Fatalf("expected failed state, got %d", m.state)
	}
	if m.Err() == nil || !strings.Contains(m.View(), "boom") {
		t.Error("expected error in view")
	}

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModelOpenAndCloseDiff(t *testing.T) {
	m := browsing(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateDiff {
		t.Fatalf("expected diff state, got %d", m.state)
	}
	if m.pane.Title() != "/app.jar" {
		t.Errorf("expected pane on /app.jar, got %s", m.pane.Title())
	}
	if !strings.Contains(m.View(), "1 differences inside the archive") {
		t.Error("expected nested count in diff view")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != StateBrowse {
		t.Errorf("expected browse state after esc, got %d", m.state)
	}
}

func TestModelRightTogglesPlainDirectory(t *testing.T) {
	m := browsing(t)

	// Move to /etc, a container without a record of its own.
	for range 4 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if got := m.tree.Selected().Path; got != "/etc" {
		t.Fatalf("expected /etc, got %s", got)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.state != StateBrowse {
		t.Errorf("expected to stay in browse state, got %d", m.state)
	}
	if m.tree.Len() != 7 {
		t.Errorf("expected /etc collapsed, got %d rows", m.tree.Len())
	}
}

func TestModelToolWithoutLauncher(t *testing.T) {
	m := browsing(t)
	m, cmd := update(t, m, keyRunes("t"))

	if cmd != nil {
		t.Error("expected no command without a launcher")
	}
	if !strings.Contains(m.status, "no diff tool configured") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestModelQuitWhileComparing(t *testing.T) {
	m := NewModel(Options{})
	_, cmd := update(t, m, keyRunes("q"))

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.ctx.Err() == nil {
		t.Error("expected comparison context to be cancelled")
	}
}

func TestModelProgress(t *testing.T) {
	m := NewModel(Options{})
	m, cmd := update(t, m, ProgressMsg{Phase: types.PhaseBuild, Root: "/a", FilesSeen: 10, ArchivesExpanded: 1})
	if cmd == nil {
		t.Error("expected to keep listening for progress")
	}
	m, _ = update(t, m, ProgressMsg{Phase: types.PhaseBuild, Root: "/b", FilesSeen: 5})
	m, _ = update(t, m, ProgressMsg{Phase: types.PhaseCompare, CurrentPath: "/x", Compared: 3, Differences: 2})

	if m.progress.Files() != 15 {
		t.Errorf("expected 15 files, got %d", m.progress.Files())
	}
	if m.progress.Archives() != 1 {
		t.Errorf("expected 1 archive, got %d", m.progress.Archives())
	}
	if !strings.Contains(m.View(), "Comparing") {
		t.Error("expected compare phase label")
	}
}

func TestStartCompare(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(dir1, "x.txt"), []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir2, "x.txt"), []byte("22\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewModel(Options{Dir1: dir1, Dir2: dir2})
	msg, ok := m.startCompare()().(CompareCompleteMsg)
	if !ok {
		t.Fatal("expected CompareCompleteMsg")
	}
	if msg.Err != nil {
		t.Fatalf("unexpected error: %v", msg.Err)
	}
	if len(msg.Result.Differences) != 1 || msg.Result.Differences[0].Kind != types.KindSizeDiff {
		t.Errorf("unexpected differences %+v", msg.Result.Differences)
	}

	select {
	case <-m.done:
	default:
		t.Error("expected done to be closed")
	}
	// Buffered events drain and the loop ends because the channel is closed.
	for range m.progressChan {
	}
}

func TestRenderRecordTextDiff(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.conf")
	p2 := filepath.Join(dir, "b.conf")
	if err := os.WriteFile(p1, []byte("port=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p2, []byte("port=2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &differ.Record{
		Path:  "/etc/app.conf",
		Kind:  types.KindContentDiff,
		Item1: &differ.Item{Name: "app.conf", Path: p1, Size: 7, Hash: "sha256:0123456789abcdef0123"},
		Item2: &differ.Item{Name: "app.conf", Path: p2, Size: 7},
	}
	out := RenderRecord(rec, textdiff.Options{})

	for _, want := range []string{"/etc/app.conf", "content_diff", "sha256:0123456789ab", "-port=1", "+port=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderRecordArchiveMember(t *testing.T) {
	rec := &differ.Record{
		Path:  "/app.jar/X.class",
		Kind:  types.KindContentDiff,
		Item1: &differ.Item{Name: "X.class", Size: 10, InArchive: true},
		Item2: &differ.Item{Name: "X.class", Size: 10, InArchive: true},
	}
	out := RenderRecord(rec, textdiff.Options{})

	if !strings.Contains(out, "(archive member)") {
		t.Error("expected archive member note")
	}
	if strings.Contains(out, "@@") {
		t.Error("archive members must not be diffed")
	}
}

func TestRenderRecordOneSided(t *testing.T) {
	rec := &differ.Record{
		Path:  "/gone.txt",
		Kind:  types.KindOnlyIn1,
		Item1: &differ.Item{Name: "gone.txt", Path: "/nonexistent/gone.txt", Size: 1},
	}
	out := RenderRecord(rec, textdiff.Options{})

	if !strings.Contains(out, "right: (absent)") {
		t.Errorf("expected absent right side:\n%s", out)
	}
}

func TestShortHash(t *testing.T) {
	if got := shortHash("md5:0123456789abcdef"); got != "md5:0123456789ab" {
		t.Errorf("unexpected %s", got)
	}
	if got := shortHash("abc"); got != "abc" {
		t.Errorf("unexpected %s", got)
	}
}
