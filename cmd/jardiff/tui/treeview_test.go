package tui

import (
	"strings"
	"testing"
)

func TestNewTreeView(t *testing.T) {
	tv := NewTreeView(BuildTree("/", testRecords()))

	if tv.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", tv.cursor)
	}
	if tv.Len() != 8 {
		t.Errorf("expected 8 visible nodes, got %d", tv.Len())
	}
}

func TestNewTreeViewNil(t *testing.T) {
	tv := NewTreeView(nil)

	if tv.Len() != 0 {
		t.Errorf("expected 0 visible nodes for nil root, got %d", tv.Len())
	}
	if tv.Selected() != nil {
		t.Error("expected no selection")
	}
	if !strings.Contains(tv.View(60, 5), "No differences to display") {
		t.Error("expected empty message")
	}

	// Navigation on an empty view is a no-op.
	tv.MoveDown()
	tv.MoveUp()
	tv.Toggle()
	tv.ExpandAll()
	tv.CollapseAll()
}

func TestTreeViewNavigation(t *testing.T) {
	tv := NewTreeView(BuildTree("/", testRecords()))

	tv.MoveUp()
	if tv.cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", tv.cursor)
	}

	tv.MoveDown()
	if got := tv.Selected().Path; got != "/app.jar" {
		t.Errorf("expected /app.jar, got %s", got)
	}

	tv.End()
	if got := tv.Selected().Path; got != "/var/broken" {
		t.Errorf("expected /var/broken, got %s", got)
	}
	tv.MoveDown()
	if tv.cursor != 7 {
		t.Errorf("expected cursor to stay at 7, got %d", tv.cursor)
	}

	tv.Page(-3)
	if tv.cursor != 4 {
		t.Errorf("expected cursor at 4, got %d", tv.cursor)
	}
	tv.Page(-100)
	if tv.cursor != 0 {
		t.Errorf("expected cursor clamped to 0, got %d", tv.cursor)
	}
	tv.Page(100)
	if tv.cursor != 7 {
		t.Errorf("expected cursor clamped to 7, got %d", tv.cursor)
	}

	tv.Home()
	if tv.cursor != 0 || tv.offset != 0 {
		t.Errorf("expected home at 0/0, got %d/%d", tv.cursor, tv.offset)
	}
}

func TestTreeViewToggle(t *testing.T) {
	tv := NewTreeView(BuildTree("/", testRecords()))

	tv.MoveDown() // app.jar
	tv.Toggle()
	if tv.Len() != 6 {
		t.Errorf("expected 6 visible nodes after collapsing app.jar, got %d", tv.Len())
	}

	tv.Toggle()
	if tv.Len() != 8 {
		t.Errorf("expected 8 visible nodes after expanding app.jar, got %d", tv.Len())
	}

	tv.End() // leaf
	tv.Toggle()
	if tv.Len() != 8 {
		t.Errorf("toggling a leaf should not change the view, got %d", tv.Len())
	}
}

func TestTreeViewCollapseAllResetsCursor(t *testing.T) {
	tv := NewTreeView(BuildTree("/", testRecords()))
	tv.End()

	tv.CollapseAll()
	if tv.Len() != 4 {
		t.Errorf("expected 4 visible nodes, got %d", tv.Len())
	}
	if tv.cursor != 0 {
		t.Errorf("expected cursor reset to 0, got %d", tv.cursor)
	}
}

func TestTreeViewView(t *testing.T) {
	tv := NewTreeView(BuildTree("/", testRecords()))

	out := tv.View(80, 20)
	for _, want := range []string{"app.jar", "size_diff (1)", "X.class", "content_diff", "new.conf", "only_in_2", "4 differences"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
	if !strings.Contains(out, iconExpanded) {
		t.Error("expected expanded icon")
	}
}

func TestTreeViewScrolling(t *testing.T) {
	tv := NewTreeView(BuildTree("/", testRecords()))
	tv.End()

	out := tv.View(80, 3)
	if tv.offset != 5 {
		t.Errorf("expected offset 5, got %d", tv.offset)
	}
	if strings.Contains(out, "app.jar") {
		t.Error("scrolled view should not show the first rows")
	}
	if !strings.Contains(out, "broken") {
		t.Error("scrolled view should show the cursor row")
	}
}

func TestNodeDetail(t *testing.T) {
	root := BuildTree("/", testRecords())

	if got := nodeDetail(root.Children[1]); got != "1 difference" {
		t.Errorf("expected singular detail, got %q", got)
	}
	if got := nodeDetail(root.Children[2].Children[0]); got != "error" {
		t.Errorf("expected kind detail, got %q", got)
	}
}
