package query

import (
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/store"
)

// ShouldInclude reports whether the node at nodePath passes the depth limit,
// measured from a webspace root at rootDepth. Limits of zero or below do
// not filter.
func ShouldInclude(nodePath string, rootDepth, depth int) bool {
	return paths.WithinDepth(paths.RelativeDepth(nodePath, rootDepth), depth)
}

// collectPaths returns the distinct page paths of rows passing the depth
// limit, in row order.
func collectPaths(rows []store.Row, rootDepth, depth int) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, row := range rows {
		p := row.Path(store.SelectorPage)
		if p == "" || seen[p] {
			continue
		}
		if ShouldInclude(p, rootDepth, depth) {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
