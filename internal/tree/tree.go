// Package tree turns a manifest record's flat dependency list into a
// hierarchical namespace tree keyed by path segments.
package tree

import (
	"sort"
	"strings"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

// Delimiter separates the segments of a dependency path.
const Delimiter = "/"

// Kind classifies a node for presentation ordering and coloring. A
// node has exactly one kind at a time; Replaced and Excluded overwrite
// the original Direct/Indirect classification when both would apply.
type Kind int

const (
	Namespace Kind = iota
	Direct
	Indirect
	Replaced
	Excluded
	Tool
)

func (k Kind) String() string {
	switch k {
	case Namespace:
		return "namespace"
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	case Replaced:
		return "replaced"
	case Excluded:
		return "excluded"
	case Tool:
		return "tool"
	default:
		return "unknown"
	}
}

// Node is one segment of the namespace tree. Leaf is populated only on
// terminal dependency nodes, never on intermediate namespace groupings.
// A node may be both a leaf and a namespace when one dependency path is
// a prefix of another.
type Node struct {
	Segment  string
	Children map[string]*Node
	Leaf     *manifest.DependencyRef
	Kind     Kind

	// Target carries the replacement destination for Replaced leaves;
	// the node's position still reconstructs the declared source path.
	Target *manifest.DependencyRef

	// Orphan marks a synthetic leaf created for a replace/exclude
	// directive whose source path matched no require entry. A known,
	// reportable anomaly rather than an error.
	Orphan bool
}

// Build converts a record into a namespace tree. Requires and tools are
// inserted first; replacements and exclusions are applied as a second
// pass that mutates the matching leaf's kind, synthesizing an orphan
// leaf when no match exists so nothing declared is silently dropped.
func Build(rec *manifest.Record) *Node {
	root := &Node{Children: make(map[string]*Node)}
	if rec == nil {
		return root
	}

	for i := range rec.Require {
		ref := rec.Require[i]
		kind := Direct
		if ref.Indirect {
			kind = Indirect
		}
		insert(root, ref, kind, false)
	}
	for i := range rec.Tool {
		insert(root, rec.Tool[i], Tool, false)
	}

	for i := range rec.Replace {
		rep := rec.Replace[i]
		leaf := overlay(root, rep.DependencyRef, Replaced)
		leaf.Target = &manifest.DependencyRef{Path: rep.NewPath, Version: rep.NewVersion}
	}
	for i := range rec.Exclude {
		overlay(root, rec.Exclude[i], Excluded)
	}

	return root
}

// Effective returns the dependency data a consumer should display for
// the node: the replacement target for Replaced leaves, the declared
// reference otherwise.
func (n *Node) Effective() *manifest.DependencyRef {
	if n.Kind == Replaced && n.Target != nil {
		return n.Target
	}
	return n.Leaf
}

// IsLeaf reports whether the node terminates a declared dependency.
func (n *Node) IsLeaf() bool {
	return n.Leaf != nil
}

// SortedChildren returns the children in lexicographic segment order,
// the presentation order for siblings. Manifest order is retained only
// inside the record itself.
func (n *Node) SortedChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// Find walks the tree along a dependency path and returns the node at
// its end, or nil when no such node exists.
func Find(root *Node, path string) *Node {
	node := root
	for _, segment := range strings.Split(path, Delimiter) {
		if segment == "" {
			return nil
		}
		next, ok := node.Children[segment]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// Walk visits every node under root in depth-first, lexicographic
// order, calling fn with the node and its full path from root.
func Walk(root *Node, fn func(path string, n *Node)) {
	var walk func(prefix string, n *Node)
	walk = func(prefix string, n *Node) {
		for _, child := range n.SortedChildren() {
			path := child.Segment
			if prefix != "" {
				path = prefix + Delimiter + child.Segment
			}
			fn(path, child)
			walk(path, child)
		}
	}
	walk("", root)
}

// Leaves returns the full paths of every terminal dependency node in
// presentation order.
func Leaves(root *Node) []string {
	var out []string
	Walk(root, func(path string, n *Node) {
		if n.IsLeaf() {
			out = append(out, path)
		}
	})
	return out
}

// Orphans returns the paths of synthetic leaves created for replace or
// exclude directives that matched no require entry.
func Orphans(root *Node) []string {
	var out []string
	Walk(root, func(path string, n *Node) {
		if n.Orphan {
			out = append(out, path)
		}
	})
	return out
}

// insert walks and creates nodes for every segment of ref's path,
// marking intermediates as Namespace and the final segment as a leaf of
// the given kind. Re-declaring an existing leaf overwrites its data.
func insert(root *Node, ref manifest.DependencyRef, kind Kind, orphan bool) *Node {
	node := root
	segments := strings.Split(ref.Path, Delimiter)
	for i, segment := range segments {
		child, ok := node.Children[segment]
		if !ok {
			child = &Node{Segment: segment, Children: make(map[string]*Node)}
			node.Children[segment] = child
		}
		node = child
		if i == len(segments)-1 {
			leaf := ref
			node.Leaf = &leaf
			node.Kind = kind
			node.Orphan = orphan
		}
	}
	return node
}

// overlay reclassifies the leaf matching ref's path, or synthesizes an
// orphan leaf when the path was never required.
func overlay(root *Node, ref manifest.DependencyRef, kind Kind) *Node {
	if node := Find(root, ref.Path); node != nil && node.IsLeaf() {
		node.Kind = kind
		return node
	}
	return insert(root, ref, kind, true)
}
