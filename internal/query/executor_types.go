package query

import (
	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/tree"
)

// DepthUnlimited disables the depth filter. Any negative depth has the same
// effect; so does 0, see paths.WithinDepth.
const DepthUnlimited = -1

// Options are the per-call execution parameters.
type Options struct {
	// Flat returns the mapped items as a list; otherwise they are nested
	// into a tree.
	Flat bool
	// Depth limits results to nodes at most this many levels below the
	// webspace content root.
	Depth int
	// Limit and Offset are applied to the statement when non-zero.
	Limit  int
	Offset int
	// MoveUp promotes items whose parent was filtered out to tree roots.
	MoveUp bool
	// Permission is the permission the current identity needs on each node.
	Permission string
}

// DefaultOptions returns flat, unlimited execution options.
func DefaultOptions() Options {
	return Options{Flat: true, Depth: DepthUnlimited}
}

// Result holds the items of an execution. Tree is nil for flat executions.
type Result struct {
	Items []model.Item             `json:"items"`
	Tree  []*tree.Node[model.Item] `json:"tree,omitempty"`
}

// Field describes a value the row mapper copies onto each item.
type Field struct {
	// Name is the key under which the value is stored in Item.Fields.
	Name string `json:"name"`
	// Column reads the value from a result row column.
	Column string `json:"column,omitempty"`
	// Property reads the value from the localized node attributes when
	// Column is empty. "title" resolves to the localization title.
	Property string `json:"property,omitempty"`
	// Required fails the mapping when the value is absent.
	Required bool `json:"required,omitempty"`
}

// Builder constructs the statement of a content query.
type Builder interface {
	// Build returns the statement text and the fields to map.
	Build(webspaceKey string, locales []string) (statement string, fields []Field, err error)
	// Published reports whether only published localizations are wanted.
	Published() bool
}

// Session is the store session the executor runs against.
type Session interface {
	ContentPath(webspaceKey string) string
	QueryManager() store.QueryManager
	GetNodes(paths []string) (map[string]*model.Node, error)
}

// MapRequest is the mapping context passed to the row mapper.
type MapRequest struct {
	WebspaceKey   string
	Locales       []string
	Fields        []Field
	Depth         int
	PublishedOnly bool
	Identity      security.Identity
	Permission    string
}

// RowMapper converts result rows into items.
type RowMapper interface {
	MapRows(rows []store.Row, req MapRequest) ([]model.Item, error)
}

// Stopwatch receives named timing spans around each execution phase.
type Stopwatch interface {
	Start(name string)
	Stop(name string)
}

type noopStopwatch struct{}

func (noopStopwatch) Start(string) {}
func (noopStopwatch) Stop(string)  {}
