// Package fixtures loads page trees described in YAML into the content
// store.
//
// A fixture file lists pages per webspace; children nest below their
// parent:
//
//	webspaces:
//	  io:
//	    locale: en
//	    pages:
//	      - title: Products
//	        template: overview
//	        localizations:
//	          de: {title: Produkte}
//	        children:
//	          - title: Running Shoes
//	            draft: true
//	            fields: {price: 120}
package fixtures

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/slugs"
	"github.com/2lenet/sulu/internal/store"
)

// DefaultLocale is used for webspaces that do not name a locale.
const DefaultLocale = "en"

// File is a parsed fixture file.
type File struct {
	Webspaces map[string]*Webspace `yaml:"webspaces"`
}

// Webspace holds the page tree of one webspace.
type Webspace struct {
	// Locale is the locale of the page-level title, draft flag and fields.
	Locale string  `yaml:"locale"`
	Pages  []*Page `yaml:"pages"`
}

// Page describes a page and its subtree.
type Page struct {
	// Name is the node name. Derived from the title when empty.
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Template string `yaml:"template"`
	Draft    bool   `yaml:"draft"`

	Permissions   map[string][]string      `yaml:"permissions"`
	Fields        map[string]any           `yaml:"fields"`
	Localizations map[string]*Localization `yaml:"localizations"`
	Children      []*Page                  `yaml:"children"`
}

// Localization describes a page in an additional locale.
type Localization struct {
	Title  string         `yaml:"title"`
	Draft  bool           `yaml:"draft"`
	Fields map[string]any `yaml:"fields"`
}

// Load parses a fixture document.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if f.Webspaces == nil {
		f.Webspaces = make(map[string]*Webspace)
	}
	return &f, nil
}

// LoadFile parses the fixture file at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file %s: %w", path, err)
	}
	defer fh.Close()

	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WebspaceKeys returns the webspace keys in sorted order.
func (f *File) WebspaceKeys() []string {
	var keys []string
	for k := range f.Webspaces {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Nodes flattens the fixture into nodes in pre-order, laid out below the
// webspace content roots of layout. Node IDs are derived from the node
// path so that importing the same file twice yields the same IDs.
func (f *File) Nodes(layout store.Options) ([]*model.Node, error) {
	var out []*model.Node
	for _, key := range f.WebspaceKeys() {
		ws := f.Webspaces[key]
		if ws == nil {
			continue
		}
		locale := ws.Locale
		if locale == "" {
			locale = DefaultLocale
		}
		nodes, err := flatten(layout.ContentPath(key), locale, ws.Pages)
		if err != nil {
			return nil, fmt.Errorf("webspace %s: %w", key, err)
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func flatten(parent, locale string, pages []*Page) ([]*model.Node, error) {
	var out []*model.Node
	seen := make(map[string]bool, len(pages))
	for i, p := range pages {
		name := p.Name
		if name == "" {
			name = slugs.NodeName(p.Title)
		}
		if !paths.ValidName(name) {
			return nil, fmt.Errorf("invalid page name %q below %s", name, parent)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate page %q below %s", name, parent)
		}
		seen[name] = true

		nodePath := paths.Join(parent, name)
		node := &model.Node{
			ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(nodePath)).String(),
			Path:        nodePath,
			Template:    p.Template,
			Order:       i + 1,
			Permissions: p.Permissions,
			Localizations: map[string]*model.Localization{
				locale: localization(p.Title, p.Draft, p.Fields),
			},
		}
		for loc, l := range p.Localizations {
			if l == nil {
				continue
			}
			node.Localizations[loc] = localization(l.Title, l.Draft, l.Fields)
		}
		out = append(out, node)

		children, err := flatten(nodePath, locale, p.Children)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

func localization(title string, draft bool, fields map[string]any) *model.Localization {
	l := &model.Localization{Title: title, State: model.StatePublished, Fields: fields}
	if draft {
		l.State = model.StateDraft
	}
	return l
}

// Apply saves the fixture's pages. With replace set, the existing trees
// of the fixture's webspaces are deleted first.
// Returns the number of pages saved.
func (f *File) Apply(st *store.Store, replace bool) (int, error) {
	nodes, err := f.Nodes(st.Options())
	if err != nil {
		return 0, err
	}
	if replace {
		for _, key := range f.WebspaceKeys() {
			if _, err := st.DeleteWebspace(key); err != nil {
				return 0, fmt.Errorf("failed to clear webspace %s: %w", key, err)
			}
		}
	}
	for _, n := range nodes {
		if err := st.SaveNode(n); err != nil {
			return 0, err
		}
	}
	logger.Info("saved %d fixture pages in %d webspaces", len(nodes), len(f.Webspaces))
	return len(nodes), nil
}
