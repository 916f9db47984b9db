package tui

import (
	"path"
	"strings"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
)

// Node is one entry in the browsable difference tree. Directories and
// archives with differences inside them are containers; every other node
// carries the record it was built from.
type Node struct {
	// Path is the logical path.
	Path string

	// Name is the last path segment, or the path itself for the root.
	Name string

	// IsDir marks a container node.
	IsDir bool

	// Record is the difference at this path, nil for plain ancestors.
	Record *differ.Record

	// Count is the number of records at or below this node.
	Count int

	Children []*Node
	Parent   *Node

	Expanded bool
}

// AddChild adds a child node and sets its parent.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Depth returns the distance from the root.
func (n *Node) Depth() int {
	depth := 0
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		depth++
	}
	return depth
}

// Flatten returns the visible nodes in display order.
func (n *Node) Flatten() []*Node {
	result := []*Node{n}
	if n.IsDir && n.Expanded {
		for _, child := range n.Children {
			result = append(result, child.Flatten()...)
		}
	}
	return result
}

// Toggle expands or collapses a container.
func (n *Node) Toggle() {
	if n.IsDir {
		n.Expanded = !n.Expanded
	}
}

// ExpandAll expands n and every container below it.
func (n *Node) ExpandAll() {
	if !n.IsDir {
		return
	}
	n.Expanded = true
	for _, child := range n.Children {
		child.ExpandAll()
	}
}

// CollapseAll collapses every container below n. The root stays open.
func (n *Node) CollapseAll() {
	for _, child := range n.Children {
		child.collapse()
	}
}

func (n *Node) collapse() {
	if !n.IsDir {
		return
	}
	n.Expanded = false
	for _, child := range n.Children {
		child.collapse()
	}
}

// BuildTree arranges records under base. Records are expected in
// logical path order, which keeps children sorted. Nested archive records
// are ignored since the same records are present in the flat list.
func BuildTree(base string, records []differ.Record) *Node {
	base = path.Clean("/" + base)
	root := &Node{Path: base, Name: base, IsDir: true, Expanded: true}
	nodes := map[string]*Node{base: root}

	for i := range records {
		rec := &records[i]
		p := path.Clean("/" + rec.Path)
		n, ok := nodes[p]
		if !ok {
			parent := ensureAncestors(base, p, nodes)
			n = &Node{Path: p, Name: path.Base(p)}
			parent.AddChild(n)
			nodes[p] = n
		}
		n.Record = rec
		if rec.Item1 != nil && rec.Item1.IsDir || rec.Item2 != nil && rec.Item2.IsDir {
			n.IsDir = true
		}
	}

	countRecords(root)
	root.ExpandAll()
	return root
}

// ensureAncestors creates the container nodes between base and p and
// returns p's parent.
func ensureAncestors(base, p string, nodes map[string]*Node) *Node {
	parentPath := path.Dir(p)
	if !strings.HasPrefix(parentPath, base) {
		return nodes[base]
	}

	var missing []string
	for cur := parentPath; ; cur = path.Dir(cur) {
		if _, ok := nodes[cur]; ok {
			break
		}
		missing = append(missing, cur)
		if cur == "/" {
			break
		}
	}

	for i := len(missing) - 1; i >= 0; i-- {
		dirPath := missing[i]
		parent, ok := nodes[path.Dir(dirPath)]
		if !ok {
			parent = nodes[base]
		}
		dir := &Node{Path: dirPath, Name: path.Base(dirPath), IsDir: true}
		parent.AddChild(dir)
		nodes[dirPath] = dir
	}

	parent := nodes[parentPath]
	parent.IsDir = true
	return parent
}

func countRecords(n *Node) int {
	total := 0
	if n.Record != nil {
		total++
	}
	for _, child := range n.Children {
		total += countRecords(child)
	}
	n.Count = total
	return total
}
