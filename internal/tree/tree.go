// Package tree converts ordered flat lists of path-addressed items into
// nested trees.
package tree

import (
	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/paths"
)

// Treeable is an item that knows its own node path and its parent's.
// Variant separates items sharing a path (e.g. one per locale): an item
// only nests under a parent of the same variant.
type Treeable interface {
	NodePath() string
	ParentPath() string
	Variant() string
}

func treeKey(variant, nodePath string) string {
	return variant + "\x00" + nodePath
}

// Node wraps an item with its ordered children.
type Node[T Treeable] struct {
	Item     T          `json:"item"`
	Children []*Node[T] `json:"children,omitempty"`
}

// Convert nests items by their parent paths.
//
// Items are expected in pre-order (ancestors before descendants); each item
// is attached to the closest preceding item of its variant holding its
// parent path. Items
// whose parent is not in the list are handled as follows:
//   - items at the shallowest depth of the list are roots;
//   - deeper items (their parent was filtered out) become roots when moveUp
//     is set, and are dropped together with their subtree otherwise.
//
// Roots and children keep the order in which they were encountered.
func Convert[T Treeable](items []T, moveUp bool) []*Node[T] {
	if len(items) == 0 {
		return nil
	}

	minDepth := -1
	for _, item := range items {
		if d := paths.Depth(item.NodePath()); minDepth < 0 || d < minDepth {
			minDepth = d
		}
	}

	var roots []*Node[T]
	byKey := make(map[string]*Node[T], len(items))
	for _, item := range items {
		node := &Node[T]{Item: item}
		p := item.NodePath()

		if parent, ok := byKey[treeKey(item.Variant(), item.ParentPath())]; ok {
			parent.Children = append(parent.Children, node)
		} else if paths.Depth(p) == minDepth || moveUp {
			roots = append(roots, node)
		} else {
			logger.Debug("tree: dropping %s, parent %s not in result", p, item.ParentPath())
		}
		byKey[treeKey(item.Variant(), p)] = node
	}
	return roots
}

// Walk visits nodes in pre-order, passing each node's depth within the tree
// (0 for roots). Returning false from fn skips the node's children.
func Walk[T Treeable](roots []*Node[T], fn func(node *Node[T], depth int) bool) {
	var visit func(nodes []*Node[T], depth int)
	visit = func(nodes []*Node[T], depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(roots, 0)
}

// Count returns the number of nodes in a tree.
func Count[T Treeable](roots []*Node[T]) int {
	n := 0
	Walk(roots, func(*Node[T], int) bool {
		n++
		return true
	})
	return n
}
