// Package mapper converts content query result rows into items.
package mapper

import (
	"errors"
	"fmt"

	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/query"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/store"
)

// Session is the part of a store session the mapper reads nodes from.
type Session interface {
	ContentPath(webspaceKey string) string
	GetNode(nodePath string) (*model.Node, error)
}

// MissingFieldError reports a required field without a value.
type MissingFieldError struct {
	Path   string
	Locale string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q missing on %s in locale %s", e.Field, e.Path, e.Locale)
}

// ContentMapper maps rows to items by loading their nodes from a session.
type ContentMapper struct {
	session Session
	checker security.PermissionChecker
}

var _ query.RowMapper = (*ContentMapper)(nil)

// New creates a mapper reading from session. A nil checker uses the node
// ACL entries.
func New(session Session, checker security.PermissionChecker) *ContentMapper {
	if checker == nil {
		checker = security.ACLChecker{}
	}
	return &ContentMapper{session: session, checker: checker}
}

// MapRows produces one item per row and locale, locale by locale, in row
// order. Rows beyond the depth limit, nodes lacking the locale, drafts when
// only published content is requested, and nodes the identity may not
// access yield nothing. A row repeating an already mapped node is skipped.
func (m *ContentMapper) MapRows(rows []store.Row, req query.MapRequest) ([]model.Item, error) {
	rootDepth := paths.Depth(m.session.ContentPath(req.WebspaceKey))

	var items []model.Item
	seen := make(map[string]bool)
	for _, locale := range req.Locales {
		for _, row := range rows {
			p := row.Path(store.SelectorPage)
			if p == "" || !query.ShouldInclude(p, rootDepth, req.Depth) {
				continue
			}

			node, err := m.session.GetNode(p)
			if errors.Is(err, store.ErrNodeNotFound) {
				logger.Debug("skipping row for missing node %s", p)
				continue
			}
			if err != nil {
				return nil, err
			}

			loc := node.Localization(locale)
			if loc == nil {
				continue
			}
			if req.PublishedOnly && !loc.Published() {
				continue
			}
			if !m.checker.IsGranted(req.Identity, node, req.Permission) {
				continue
			}

			item := model.Item{
				ID:          node.ID,
				Path:        node.Path,
				Depth:       paths.RelativeDepth(node.Path, rootDepth),
				Webspace:    req.WebspaceKey,
				Locale:      locale,
				Title:       loc.Title,
				Template:    node.Template,
				Published:   loc.Published(),
				PublishedAt: loc.PublishedAt,
				Changed:     node.Changed,
			}
			if seen[item.Key()] {
				continue
			}

			fields, err := extractFields(row, node, loc, req.Fields)
			if err != nil {
				return nil, err
			}
			item.Fields = fields

			seen[item.Key()] = true
			items = append(items, item)
		}
	}
	return items, nil
}

func extractFields(row store.Row, node *model.Node, loc *model.Localization, fields []query.Field) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v := fieldValue(row, node, loc, f)
		if v == nil {
			if f.Required {
				return nil, &MissingFieldError{Path: node.Path, Locale: loc.Locale, Field: f.Name}
			}
			continue
		}
		out[f.Name] = v
	}
	return out, nil
}

func fieldValue(row store.Row, node *model.Node, loc *model.Localization, f query.Field) any {
	if f.Column != "" {
		v, _ := row.Value(f.Column)
		return v
	}
	switch f.Property {
	case "":
		return nil
	case "title":
		if loc.Title == "" {
			return nil
		}
		return loc.Title
	case "template":
		if node.Template == "" {
			return nil
		}
		return node.Template
	}
	return loc.Fields[f.Property]
}
