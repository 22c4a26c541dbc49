// Package nstree builds a rooted namespace tree from dotted protobuf
// package names. Two packages that share a leading run of segments
// share the corresponding nodes, so the tree mirrors the package
// hierarchy exactly once no matter how many inputs touch a given
// prefix or in what order they arrive.
package nstree

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidPackageName is returned by Build when a package name has a
// leading, trailing, or doubled dot. Callers can test for it with
// errors.Is.
var ErrInvalidPackageName = errors.New("invalid dotted package name")

// NodeID addresses a node within a Tree. IDs are only meaningful for
// the tree that issued them.
type NodeID int

// Root is the NodeID of every tree's root node. The root owns no
// segment and corresponds to the empty (default) package.
const Root NodeID = 0

type node struct {
	segment  string
	fullPath string
	parent   NodeID
	children map[string]NodeID
	terminal bool
}

// Tree is a namespace tree over dotted package names. Nodes live in a
// flat arena and refer to one another by NodeID, so the tree can be
// grown incrementally and walked by several consumers without any
// node-lifetime bookkeeping. A Tree is immutable once Build returns.
type Tree struct {
	nodes []node
}

// Build constructs a tree containing every name in packages. The empty
// string names the default package and marks the root terminal.
// Duplicate names are idempotent. A name containing an empty segment
// fails with ErrInvalidPackageName.
func Build(packages []string) (*Tree, error) {
	t := &Tree{nodes: []node{{parent: -1}}}
	for _, pkg := range packages {
		if err := t.add(pkg); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) add(pkg string) error {
	cur := Root
	if pkg != "" {
		for _, seg := range strings.Split(pkg, ".") {
			if seg == "" {
				return errors.Wrapf(ErrInvalidPackageName, "%q", pkg)
			}
			cur = t.child(cur, seg)
		}
	}
	t.nodes[cur].terminal = true
	return nil
}

// child returns the existing child of parent owning segment, creating
// it first if necessary.
func (t *Tree) child(parent NodeID, segment string) NodeID {
	if id, ok := t.nodes[parent].children[segment]; ok {
		return id
	}
	full := segment
	if p := t.nodes[parent].fullPath; p != "" {
		full = p + "." + segment
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{segment: segment, fullPath: full, parent: parent})
	if t.nodes[parent].children == nil {
		t.nodes[parent].children = make(map[string]NodeID)
	}
	t.nodes[parent].children[segment] = id
	return id
}

// Len returns the number of nodes in the tree, including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Segment returns the path component owned by id, empty for the root.
func (t *Tree) Segment(id NodeID) string {
	return t.nodes[id].segment
}

// FullPath returns the dotted package name of id, empty for the root.
func (t *Tree) FullPath(id NodeID) string {
	return t.nodes[id].fullPath
}

// Parent returns the parent of id, or -1 for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// IsTerminal reports whether id corresponds to a package that was
// supplied to Build, as opposed to a shared intermediate prefix.
func (t *Tree) IsTerminal(id NodeID) bool {
	return t.nodes[id].terminal
}

// Children returns the children of id ordered lexicographically by
// segment, regardless of the order packages were supplied in.
func (t *Tree) Children(id NodeID) []NodeID {
	kids := t.nodes[id].children
	if len(kids) == 0 {
		return nil
	}
	segments := make([]string, 0, len(kids))
	for seg := range kids {
		segments = append(segments, seg)
	}
	sort.Strings(segments)
	out := make([]NodeID, len(segments))
	for i, seg := range segments {
		out[i] = kids[seg]
	}
	return out
}

// Packages returns the full paths of all terminal nodes in depth-first
// lexicographic order. The empty string appears first when the root
// itself is terminal.
func (t *Tree) Packages() []string {
	var out []string
	var walk func(NodeID)
	walk = func(id NodeID) {
		if t.IsTerminal(id) {
			out = append(out, t.FullPath(id))
		}
		for _, child := range t.Children(id) {
			walk(child)
		}
	}
	walk(Root)
	return out
}
