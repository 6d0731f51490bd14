// Package slugs provides canonical slugification helpers for node names and
// relative content paths.
//
// Node names are built on gosimple/slug so that titles like "About Us"
// become "about-us".
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// NodeName converts a title (or a raw name) into a node name.
//
// An empty result falls back to a lowercase, dash-separated form of the
// input so that non-transliterable titles still produce a name.
func NodeName(s string) string {
	s = strings.TrimSpace(s)
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.Join(strings.Fields(s), "-"))
	}
	return slugged
}

// RelativePath slugifies each "/"-separated component of a relative
// content path, dropping empty components:
// "Products//Running Shoes/" -> "products/running-shoes"
func RelativePath(p string) string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		parts = append(parts, NodeName(part))
	}
	return strings.Join(parts, "/")
}
