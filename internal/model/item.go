package model

import (
	"time"

	"github.com/2lenet/sulu/internal/paths"
)

// Item is a content item produced by mapping a query result row.
// It is the unit returned by the query executor, both as a flat list and as
// the payload of tree nodes.
type Item struct {
	// ID is the UUID of the underlying node.
	ID string `json:"id"`

	// Path is the absolute node path.
	Path string `json:"path"`

	// Depth is the depth relative to the webspace content root.
	Depth int `json:"depth"`

	Webspace    string     `json:"webspace"`
	Locale      string     `json:"locale"`
	Title       string     `json:"title"`
	Template    string     `json:"template,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Changed     time.Time  `json:"changed"`

	// Fields contains the values of the fields requested by the query builder.
	Fields map[string]any `json:"fields,omitempty"`
}

// NodePath returns the item's node path.
func (i Item) NodePath() string { return i.Path }

// ParentPath returns the node path of the item's parent.
func (i Item) ParentPath() string { return paths.Parent(i.Path) }

// Variant returns the locale, so trees never mix locales.
func (i Item) Variant() string { return i.Locale }

// Key identifies an item by node and locale.
func (i Item) Key() string { return i.ID + "@" + i.Locale }

// DisplayTitle returns the title, or the node name when the item has none.
func (i Item) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	return paths.Name(i.Path)
}
