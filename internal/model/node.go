package model

import "time"

// WorkflowState is the publication state of a localization.
type WorkflowState string

const (
	// StateDraft marks a localization that is not visible on the website.
	StateDraft WorkflowState = "draft"
	// StatePublished marks a localization that is live.
	StatePublished WorkflowState = "published"
)

// Node represents an addressable unit in the content store.
// Nodes are identified by their absolute path and hold one localization per
// locale.
type Node struct {
	// ID uniquely identifies this node (a UUID).
	ID string `json:"id" yaml:"id"`

	// Path is the absolute node path, e.g. "/cms/io/contents/products".
	Path string `json:"path" yaml:"path"`

	// Webspace is the key of the webspace this node belongs to.
	// Derived from the path by the store when saving.
	Webspace string `json:"webspace,omitempty" yaml:"webspace,omitempty"`

	// Template names the structure used to render this node.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// Order is the position of the node among its siblings.
	Order int `json:"order" yaml:"order"`

	// Permissions maps a role name to the permissions granted on this node.
	// An empty map means the node is unrestricted.
	Permissions map[string][]string `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	Created time.Time `json:"created" yaml:"created"`
	Changed time.Time `json:"changed" yaml:"changed"`

	// Localizations holds the per-locale attributes keyed by locale.
	Localizations map[string]*Localization `json:"localizations" yaml:"localizations"`
}

// Localization holds the attributes of a node for a single locale.
type Localization struct {
	Locale      string         `json:"locale" yaml:"locale"`
	Title       string         `json:"title" yaml:"title"`
	State       WorkflowState  `json:"state" yaml:"state"`
	PublishedAt *time.Time     `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Fields      map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Published reports whether the localization is live.
func (l *Localization) Published() bool {
	return l != nil && l.State == StatePublished
}

// Localization returns the localization for locale, or nil.
func (n *Node) Localization(locale string) *Localization {
	if n == nil || n.Localizations == nil {
		return nil
	}
	return n.Localizations[locale]
}

// Restricted reports whether the node carries access control entries.
func (n *Node) Restricted() bool {
	return n != nil && len(n.Permissions) > 0
}
