package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// Tree view icons.
const (
	iconExpanded  = "▼"
	iconCollapsed = "▶"
)

// TreeView displays the difference tree with expand/collapse and scrolling.
type TreeView struct {
	root   *Node
	flat   []*Node
	cursor int
	offset int
}

// NewTreeView creates a TreeView over root.
func NewTreeView(root *Node) *TreeView {
	tv := &TreeView{root: root}
	tv.refresh()
	return tv
}

// refresh rebuilds the flat list from the current tree state.
func (tv *TreeView) refresh() {
	if tv.root == nil {
		tv.flat = nil
		return
	}
	tv.flat = tv.root.Flatten()

	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

// MoveUp moves the cursor up one position.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
	}
}

// MoveDown moves the cursor down one position.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.flat)-1 {
		tv.cursor++
	}
}

// Page moves the cursor by n rows, clamped to the list.
func (tv *TreeView) Page(n int) {
	tv.cursor += n
	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

// Home moves the cursor to the first row.
func (tv *TreeView) Home() {
	tv.cursor = 0
	tv.offset = 0
}

// End moves the cursor to the last row.
func (tv *TreeView) End() {
	if len(tv.flat) > 0 {
		tv.cursor = len(tv.flat) - 1
	}
}

// Toggle expands or collapses the container under the cursor.
func (tv *TreeView) Toggle() {
	node := tv.Selected()
	if node == nil || !node.IsDir {
		return
	}
	node.Toggle()
	tv.refresh()
}

// ExpandAll opens every container.
func (tv *TreeView) ExpandAll() {
	if tv.root == nil {
		return
	}
	tv.root.ExpandAll()
	tv.refresh()
}

// CollapseAll closes every container below the root.
func (tv *TreeView) CollapseAll() {
	if tv.root == nil {
		return
	}
	tv.root.CollapseAll()
	tv.cursor = 0
	tv.offset = 0
	tv.refresh()
}

// Selected returns the node under the cursor.
func (tv *TreeView) Selected() *Node {
	if tv.cursor < 0 || tv.cursor >= len(tv.flat) {
		return nil
	}
	return tv.flat[tv.cursor]
}

// Len returns the number of visible rows.
func (tv *TreeView) Len() int {
	return len(tv.flat)
}

// View renders the tree view within the given dimensions.
func (tv *TreeView) View(width, height int) string {
	if len(tv.flat) == 0 {
		return center(mutedTextStyle.Render("No differences to display"), width) + "\n"
	}

	visibleRows := max(height, 1)
	tv.ensureVisible(visibleRows)

	var b strings.Builder
	end := min(tv.offset+visibleRows, len(tv.flat))
	for i := tv.offset; i < end; i++ {
		b.WriteString(tv.renderNode(tv.flat[i], width, i == tv.cursor))
		b.WriteString("\n")
	}
	for i := end - tv.offset; i < visibleRows; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (tv *TreeView) ensureVisible(visible int) {
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	} else if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

// renderNode renders a single node row: indentation, expand icon or kind
// marker, name, and a right-aligned detail column.
func (tv *TreeView) renderNode(node *Node, width int, isCursor bool) string {
	indent := strings.Repeat("  ", node.Depth())

	marker := " "
	var kind types.Kind
	if node.Record != nil {
		kind = node.Record.Kind
		marker = report.KindSymbol(kind)
	}

	icon := " "
	if node.IsDir {
		icon = iconCollapsed
		if node.Expanded {
			icon = iconExpanded
		}
	}

	detail := nodeDetail(node)
	left := fmt.Sprintf("%s%s %s %s", indent, icon, marker, node.Name)
	padding := max(width-lipgloss.Width(left)-lipgloss.Width(detail)-1, 1)

	if isCursor {
		return treeRowHighlightStyle.Width(width).Render(left + strings.Repeat(" ", padding) + detail)
	}

	var styled strings.Builder
	styled.WriteString(indent)
	styled.WriteString(icon)
	styled.WriteString(" ")
	if kind != "" {
		styled.WriteString(report.KindStyle(kind).Render(marker))
	} else {
		styled.WriteString(marker)
	}
	styled.WriteString(" ")
	styled.WriteString(node.Name)
	styled.WriteString(strings.Repeat(" ", padding))
	styled.WriteString(lipgloss.NewStyle().Foreground(treeDetailColor).Render(detail))
	return treeRowNormalStyle.Width(width).Render(styled.String())
}

// nodeDetail is the right-hand column: the kind for records, the number of
// differences for plain containers.
func nodeDetail(node *Node) string {
	if node.Record != nil {
		if node.IsDir && node.Count > 1 {
			return fmt.Sprintf("%s (%d)", node.Record.Kind, node.Count-1)
		}
		return string(node.Record.Kind)
	}
	if node.Count == 1 {
		return "1 difference"
	}
	return fmt.Sprintf("%d differences", node.Count)
}

// Tree view styles.
var (
	treeRowHighlightStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#4A2040")).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	treeRowNormalStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#CCCCCC"))

	treeDetailColor = lipgloss.Color("#00AAFF")
)
