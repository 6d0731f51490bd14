// Package testutil provides reusable test utilities for content store tests.
package testutil

import (
	"testing"
	"time"

	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/store"
)

// DefaultLocale is the locale pages are created in unless overridden.
const DefaultLocale = "en"

// TestStore is a builder for an in-memory content store.
type TestStore struct {
	Store *store.Store
	t     *testing.T
	opts  store.Options
	nodes []*model.Node
}

// PageOption customizes a page added with WithPage.
type PageOption func(n *model.Node)

// NewTestStore creates a new test store builder.
// Call Build() to create the actual store.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()
	return &TestStore{t: t}
}

// WithOptions sets the store options (layout, cache size).
func (s *TestStore) WithOptions(opts store.Options) *TestStore {
	s.opts = opts
	return s
}

// WithPage adds a published page at rel below the webspace content root,
// titled in the default locale. Pages are saved in the order they are
// added, so parents must be added before their children. An empty rel
// adds the content root itself.
func (s *TestStore) WithPage(webspace, rel, title string, opts ...PageOption) *TestStore {
	n := &model.Node{
		Path:  rel,
		Order: len(s.nodes) + 1,
		Localizations: map[string]*model.Localization{
			DefaultLocale: {Title: title, State: model.StatePublished},
		},
		Webspace: webspace,
		Changed:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(n)
	}
	s.nodes = append(s.nodes, n)
	return s
}

// Build opens the store and saves all configured pages.
func (s *TestStore) Build() *TestStore {
	s.t.Helper()

	st, err := store.OpenInMemory(s.opts)
	if err != nil {
		s.t.Fatalf("failed to open store: %v", err)
	}
	s.t.Cleanup(func() { st.Close() })
	s.Store = st

	for _, n := range s.nodes {
		n.Path = paths.Join(st.ContentPath(n.Webspace), n.Path)
		if err := st.SaveNode(n); err != nil {
			s.t.Fatalf("failed to save %s: %v", n.Path, err)
		}
	}
	return s
}

// Session opens a new session on the built store.
func (s *TestStore) Session() *store.Session {
	s.t.Helper()
	sess, err := s.Store.NewSession()
	if err != nil {
		s.t.Fatalf("failed to open session: %v", err)
	}
	return sess
}

// Path returns the absolute path of rel below the webspace content root.
func (s *TestStore) Path(webspace, rel string) string {
	return paths.Join(s.Store.ContentPath(webspace), rel)
}

// Node returns the saved node added at rel.
func (s *TestStore) Node(webspace, rel string) *model.Node {
	s.t.Helper()
	want := s.Path(webspace, rel)
	for _, n := range s.nodes {
		if n.Path == want {
			return n
		}
	}
	s.t.Fatalf("no test page at %s", want)
	return nil
}

// Localized adds a localization of the page.
func Localized(locale, title string, state model.WorkflowState) PageOption {
	return func(n *model.Node) {
		n.Localizations[locale] = &model.Localization{Title: title, State: state}
	}
}

// Draft marks the default-locale localization as unpublished.
func Draft() PageOption {
	return func(n *model.Node) {
		n.Localizations[DefaultLocale].State = model.StateDraft
	}
}

// Template sets the page template.
func Template(name string) PageOption {
	return func(n *model.Node) { n.Template = name }
}

// Order sets the sibling order of the page.
func Order(order int) PageOption {
	return func(n *model.Node) { n.Order = order }
}

// Restricted grants permissions on the page to a role only.
func Restricted(role string, permissions ...string) PageOption {
	return func(n *model.Node) {
		if n.Permissions == nil {
			n.Permissions = make(map[string][]string)
		}
		n.Permissions[role] = permissions
	}
}

// Field sets a localized field value.
func Field(locale, name string, value any) PageOption {
	return func(n *model.Node) {
		loc := n.Localizations[locale]
		if loc == nil {
			return
		}
		if loc.Fields == nil {
			loc.Fields = make(map[string]any)
		}
		loc.Fields[name] = value
	}
}

// Changed sets the modification time of the page.
func Changed(t time.Time) PageOption {
	return func(n *model.Node) { n.Changed = t }
}
