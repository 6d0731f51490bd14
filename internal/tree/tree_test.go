package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2lenet/sulu/internal/paths"
)

type item struct {
	path   string
	locale string
}

func (i item) NodePath() string   { return i.path }
func (i item) ParentPath() string { return paths.Parent(i.path) }
func (i item) Variant() string    { return i.locale }

func items(nodePaths ...string) []item {
	out := make([]item, len(nodePaths))
	for i, p := range nodePaths {
		out[i] = item{path: p}
	}
	return out
}

func pathsOf(list []item) []string {
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.path
	}
	return out
}

func flatten(roots []*Node[item]) []item {
	var out []item
	Walk(roots, func(n *Node[item], _ int) bool {
		out = append(out, n.Item)
		return true
	})
	return out
}

func rootPaths(roots []*Node[item]) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = r.Item.path
	}
	return out
}

func TestConvertEmpty(t *testing.T) {
	assert.Nil(t, Convert[item](nil, true))
}

func TestConvertPreservesPreOrder(t *testing.T) {
	flat := items(
		"/c/a",
		"/c/a/b",
		"/c/a/b/x",
		"/c/a/c",
		"/c/d",
		"/c/d/e",
	)

	roots := Convert(flat, false)

	assert.Equal(t, []string{"/c/a", "/c/d"}, rootPaths(roots))
	assert.Equal(t, pathsOf(flat), pathsOf(flatten(roots)))
	assert.Equal(t, len(flat), Count(roots))
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, "/c/a/b/x", roots[0].Children[0].Children[0].Item.path)
}

func TestConvertMoveUp(t *testing.T) {
	// "/c/a/b" was filtered out; its children lose their parent.
	flat := items(
		"/c/a",
		"/c/a/b/x",
		"/c/a/b/x/deep",
		"/c/a/b/y",
		"/c/z",
	)

	t.Run("promotes orphans to roots", func(t *testing.T) {
		roots := Convert(flat, true)
		assert.Equal(t, []string{"/c/a", "/c/a/b/x", "/c/a/b/y", "/c/z"}, rootPaths(roots))
		require.Len(t, roots[1].Children, 1)
		assert.Equal(t, "/c/a/b/x/deep", roots[1].Children[0].Item.path)
	})

	t.Run("drops orphans and their subtrees", func(t *testing.T) {
		roots := Convert(flat, false)
		assert.Equal(t, []string{"/c/a", "/c/z"}, rootPaths(roots))
		assert.Equal(t, 2, Count(roots))
	})

	t.Run("is deterministic", func(t *testing.T) {
		first := pathsOf(flatten(Convert(flat, true)))
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, pathsOf(flatten(Convert(flat, true))))
		}
	})
}

func TestConvertShallowestItemsAreRoots(t *testing.T) {
	// Items sharing the minimum depth are roots even though their parents
	// (the content root) never appear in the list.
	roots := Convert(items("/c/a/x", "/c/b/y", "/c/b/y/z"), false)
	assert.Equal(t, []string{"/c/a/x", "/c/b/y"}, rootPaths(roots))
	assert.Equal(t, 3, Count(roots))
}

func TestConvertKeepsVariantsApart(t *testing.T) {
	// "/c/a" exists in en only; its de child must not nest under it.
	flat := []item{
		{path: "/c/a", locale: "en"},
		{path: "/c/a/b", locale: "en"},
		{path: "/c/a/b", locale: "de"},
	}

	roots := Convert(flat, false)
	require.Len(t, roots, 1)
	assert.Equal(t, "en", roots[0].Item.locale)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "en", roots[0].Children[0].Item.locale)
	assert.Equal(t, 2, Count(roots))

	roots = Convert(flat, true)
	require.Len(t, roots, 2)
	assert.Len(t, roots[0].Children, 1)
	assert.Equal(t, "/c/a/b", roots[1].Item.path)
	assert.Equal(t, "de", roots[1].Item.locale)
}

func TestConvertRepeatedPathsAttachToClosestPreceding(t *testing.T) {
	flat := []item{
		{path: "/c/a", locale: "en"},
		{path: "/c/a/b", locale: "en"},
		{path: "/c/a", locale: "de"},
		{path: "/c/a/b", locale: "de"},
	}

	roots := Convert(flat, false)
	require.Len(t, roots, 2)
	assert.Equal(t, "en", roots[0].Children[0].Item.locale)
	assert.Equal(t, "de", roots[1].Item.locale)
	assert.Equal(t, "de", roots[1].Children[0].Item.locale)
}

func TestWalkSkipsChildren(t *testing.T) {
	roots := Convert(items("/c/a", "/c/a/b", "/c/d"), false)

	var visited []string
	var depths []int
	Walk(roots, func(n *Node[item], depth int) bool {
		visited = append(visited, n.Item.path)
		depths = append(depths, depth)
		return n.Item.path != "/c/a"
	})
	assert.Equal(t, []string{"/c/a", "/c/d"}, visited)
	assert.Equal(t, []int{0, 0}, depths)

	visited = nil
	Walk(roots, func(n *Node[item], depth int) bool {
		if depth == 1 {
			visited = append(visited, n.Item.path)
		}
		return true
	})
	assert.Equal(t, []string{"/c/a/b"}, visited)
}
