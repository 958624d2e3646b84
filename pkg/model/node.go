// Package model defines the data-node types shared across the write-path
// coordinator: versioned nodes, their attribute set, and path helpers.
package model

import (
	"path"
	"strings"
)

// Version identifies the point in the global mutation history at which a
// node attribute was last written. SystemCounter is the monotonically
// increasing write counter; EpochCounter additionally tracks client-visible
// watch epochs and is nil until the first watch-triggering event occurs.
type Version struct {
	SystemCounter int64
	EpochCounter  *int64
}

// NewVersion returns a Version stamped with the given system counter and no
// epoch counter.
func NewVersion(systemCounter int64) Version {
	return Version{SystemCounter: systemCounter}
}

// Attribute identifies one of the independently-committable fields of a
// Node. Executors commit a subset of attributes per operation so that
// unrelated fields are never clobbered by a concurrent writer.
type Attribute int

const (
	// AttrCreated marks the node's created version.
	AttrCreated Attribute = iota
	// AttrModified marks the node's modified version.
	AttrModified
	// AttrChildren marks the node's children list.
	AttrChildren
	// AttrData marks the node's payload.
	AttrData
)

func (a Attribute) String() string {
	switch a {
	case AttrCreated:
		return "created"
	case AttrModified:
		return "modified"
	case AttrChildren:
		return "children"
	case AttrData:
		return "data"
	default:
		return "unknown"
	}
}

// AttributeSet is the set of Node attributes touched by a single commit.
type AttributeSet map[Attribute]struct{}

// NewAttributeSet builds an AttributeSet from the given attributes.
func NewAttributeSet(attrs ...Attribute) AttributeSet {
	s := make(AttributeSet, len(attrs))
	for _, a := range attrs {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether attr is a member of the set.
func (s AttributeSet) Has(attr Attribute) bool {
	_, ok := s[attr]
	return ok
}

// Node is a single path in the coordination tree, as observed or written by
// the write-path coordinator. DataB64 always carries the payload already
// base64-encoded, matching the wire representation the distributor forwards
// verbatim to readers.
type Node struct {
	Path     string
	Created  Version
	Modified Version
	Children []string
	DataB64  string
}

// NewNode returns an empty node rooted at path, with no children and no
// recorded versions.
func NewNode(nodePath string) *Node {
	return &Node{Path: nodePath, Children: []string{}}
}

// Clone returns a deep copy of the node so callers holding a reference to
// storage-internal state cannot mutate it out from under a lock holder.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	children := make([]string, len(n.Children))
	copy(children, n.Children)
	clone := *n
	clone.Children = children
	return &clone
}

// Name returns the last path segment, matching the child name a parent
// node's Children list stores for this node.
func (n *Node) Name() string {
	return path.Base(n.Path)
}

// ParentPath returns the path of n's parent. The root path's parent is
// itself, matching pathlib.Path("/").parent semantics in the original
// implementation.
func ParentPath(nodePath string) string {
	if nodePath == "/" || nodePath == "" {
		return "/"
	}
	trimmed := strings.TrimSuffix(nodePath, "/")
	parent := path.Dir(trimmed)
	if parent == "." {
		return "/"
	}
	return parent
}
