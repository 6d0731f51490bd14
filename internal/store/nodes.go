package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/sqlutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sortKeySep separates sort key segments. It must sort below every
// character allowed in node names so that a node's subtree is ordered
// before any later sibling sharing its name as a prefix.
const sortKeySep = " "

func sortSegment(order int, name string) string {
	if order < 0 {
		order = 0
	}
	return fmt.Sprintf("%08d:%s", order, name)
}

// SaveNode inserts or updates a node and replaces its localizations.
//
// The parent must already be stored unless it is the webspace content root.
// Nodes are matched by path; an existing node keeps its ID and creation
// time. When the node's sibling order changes, the sort keys of its
// descendants are rewritten so queries keep returning pre-order results.
func (s *Store) SaveNode(n *model.Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidPath)
	}
	p := paths.Normalize(n.Path)
	ws, ok := s.WebspaceOf(p)
	if !ok {
		return fmt.Errorf("%w: %s is outside any webspace content tree", ErrInvalidPath, p)
	}
	contentPath := s.ContentPath(ws)
	name := paths.Name(p)
	if p != contentPath && !paths.ValidName(name) {
		return fmt.Errorf("%w: invalid node name %q", ErrInvalidPath, name)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	now := time.Now().UTC().Truncate(time.Second)
	if n.Created.IsZero() {
		n.Created = now
	}
	if n.Changed.IsZero() {
		n.Changed = now
	}
	n.Created = n.Created.UTC().Truncate(time.Second)
	n.Changed = n.Changed.UTC().Truncate(time.Second)

	permsJSON, err := json.Marshal(n.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	if n.Permissions == nil {
		permsJSON = []byte("{}")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	parentPath := paths.Parent(p)
	sortKey := ""
	switch {
	case p == contentPath:
	case parentPath == contentPath:
		sortKey = sortSegment(n.Order, name)
	default:
		var parentKey string
		err := tx.QueryRow(`SELECT sort_key FROM nodes WHERE path = ?`, parentPath).Scan(&parentKey)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrParentNotFound, parentPath)
		}
		if err != nil {
			return fmt.Errorf("failed to read parent %s: %w", parentPath, err)
		}
		sortKey = parentKey + sortKeySep + sortSegment(n.Order, name)
	}

	var oldKey sql.NullString
	err = tx.QueryRow(`SELECT sort_key FROM nodes WHERE path = ?`, p).Scan(&oldKey)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read node %s: %w", p, err)
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (id, path, parent_path, name, depth, webspace, template, sort_order, sort_key, permissions, created_at, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			template = excluded.template,
			sort_order = excluded.sort_order,
			sort_key = excluded.sort_key,
			permissions = excluded.permissions,
			changed_at = excluded.changed_at
	`, n.ID, p, parentPath, name, paths.Depth(p), ws, n.Template, n.Order, sortKey,
		string(permsJSON), n.Created.Unix(), n.Changed.Unix())
	if err != nil {
		return fmt.Errorf("failed to save node %s: %w", p, err)
	}

	var created int64
	if err := tx.QueryRow(`SELECT id, created_at FROM nodes WHERE path = ?`, p).Scan(&n.ID, &created); err != nil {
		return fmt.Errorf("failed to reload node %s: %w", p, err)
	}
	n.Created = time.Unix(created, 0).UTC()

	if _, err := tx.Exec(`DELETE FROM localizations WHERE node_id = ?`, n.ID); err != nil {
		return fmt.Errorf("failed to clear localizations of %s: %w", p, err)
	}
	for locale, loc := range n.Localizations {
		if loc == nil {
			continue
		}
		loc.Locale = locale
		if loc.State == "" {
			loc.State = model.StateDraft
		}
		fieldsJSON := []byte("{}")
		if len(loc.Fields) > 0 {
			fieldsJSON, err = json.Marshal(loc.Fields)
			if err != nil {
				return fmt.Errorf("failed to encode fields of %s@%s: %w", p, locale, err)
			}
		}
		var publishedAt sql.NullInt64
		if loc.PublishedAt != nil {
			t := loc.PublishedAt.UTC().Truncate(time.Second)
			loc.PublishedAt = &t
			publishedAt = sql.NullInt64{Int64: t.Unix(), Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT INTO localizations (node_id, locale, title, state, published_at, fields)
			VALUES (?, ?, ?, ?, ?, ?)
		`, n.ID, locale, loc.Title, string(loc.State), publishedAt, string(fieldsJSON)); err != nil {
			return fmt.Errorf("failed to save localization %s@%s: %w", p, locale, err)
		}
	}

	if oldKey.Valid && oldKey.String != sortKey && p != contentPath {
		_, err := tx.Exec(`
			UPDATE nodes SET sort_key = ? || substr(sort_key, ?)
			WHERE path LIKE ? ESCAPE '\'
		`, sortKey, len(oldKey.String)+1, sqlutil.EscapeLike(p)+"/%")
		if err != nil {
			return fmt.Errorf("failed to reorder descendants of %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	n.Path = p
	n.Webspace = ws
	return nil
}

// DeleteNode removes the node at p and all of its descendants.
// Returns the number of nodes removed.
func (s *Store) DeleteNode(p string) (int, error) {
	p = paths.Normalize(p)
	return s.deleteWhere(`path = ? OR path LIKE ? ESCAPE '\'`, p, sqlutil.EscapeLike(p)+"/%")
}

// DeleteWebspace removes every node of a webspace.
func (s *Store) DeleteWebspace(webspaceKey string) (int, error) {
	return s.deleteWhere(`webspace = ?`, webspaceKey)
}

func (s *Store) deleteWhere(where string, args ...any) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM localizations WHERE node_id IN (SELECT id FROM nodes WHERE `+where+`)`, args...); err != nil {
		return 0, fmt.Errorf("failed to delete localizations: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM nodes WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete nodes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// Nodes returns all nodes of a webspace in pre-order. An empty key returns
// the nodes of every webspace.
func (s *Store) Nodes(webspaceKey string) ([]*model.Node, error) {
	if webspaceKey == "" {
		return s.fetchNodes(`1 = 1`)
	}
	return s.fetchNodes(`n.webspace = ?`, webspaceKey)
}

// fetchNodes loads nodes with their localizations in a single statement.
func (s *Store) fetchNodes(where string, args ...any) ([]*model.Node, error) {
	rows, err := s.db.Query(`
		SELECT n.id, n.path, n.webspace, n.template, n.sort_order, n.permissions, n.created_at, n.changed_at,
		       l.locale, l.title, l.state, l.published_at, l.fields
		FROM nodes n
		LEFT JOIN localizations l ON l.node_id = n.id
		WHERE `+where+`
		ORDER BY n.webspace, n.sort_key, l.locale
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nodes: %w", err)
	}
	defer rows.Close()

	var out []*model.Node
	byID := make(map[string]*model.Node)
	for rows.Next() {
		var (
			n                    model.Node
			permsJSON            string
			created, changed     sql.NullInt64
			locale, title, state sql.NullString
			fieldsJSON           sql.NullString
			publishedAt          sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.Path, &n.Webspace, &n.Template, &n.Order, &permsJSON,
			&created, &changed, &locale, &title, &state, &publishedAt, &fieldsJSON); err != nil {
			return nil, err
		}

		node, ok := byID[n.ID]
		if !ok {
			node = &n
			if created.Valid {
				node.Created = time.Unix(created.Int64, 0).UTC()
			}
			if changed.Valid {
				node.Changed = time.Unix(changed.Int64, 0).UTC()
			}
			if err := json.Unmarshal([]byte(permsJSON), &node.Permissions); err != nil {
				return nil, fmt.Errorf("invalid permissions on %s: %w", node.Path, err)
			}
			if len(node.Permissions) == 0 {
				node.Permissions = nil
			}
			node.Localizations = make(map[string]*model.Localization)
			byID[n.ID] = node
			out = append(out, node)
		}

		if !locale.Valid {
			continue
		}
		loc := &model.Localization{
			Locale: locale.String,
			Title:  title.String,
			State:  model.WorkflowState(state.String),
		}
		if publishedAt.Valid {
			t := time.Unix(publishedAt.Int64, 0).UTC()
			loc.PublishedAt = &t
		}
		if fieldsJSON.Valid && fieldsJSON.String != "" && fieldsJSON.String != "{}" {
			if err := json.Unmarshal([]byte(fieldsJSON.String), &loc.Fields); err != nil {
				return nil, fmt.Errorf("invalid fields on %s@%s: %w", node.Path, loc.Locale, err)
			}
		}
		node.Localizations[loc.Locale] = loc
	}
	return out, rows.Err()
}

// fetchByPaths loads the nodes at the given paths in one statement. The
// paths travel as a single JSON parameter so a batch is not bounded by
// SQLite's host parameter limit.
func (s *Store) fetchByPaths(nodePaths []string) ([]*model.Node, error) {
	encoded, err := sqlutil.JSONArray(nodePaths)
	if err != nil {
		return nil, fmt.Errorf("encode node paths: %w", err)
	}
	return s.fetchNodes(`n.path IN (SELECT value FROM json_each(?))`, encoded)
}
