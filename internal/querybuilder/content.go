// Package querybuilder provides the statement builders consumed by the
// content query executor.
package querybuilder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/query"
	"github.com/2lenet/sulu/internal/sqlutil"
	"github.com/2lenet/sulu/internal/store"
)

var (
	// ErrNoLocales is returned when a statement is built without locales.
	ErrNoLocales = errors.New("at least one locale is required")

	// ErrInvalidSort is returned for an unknown sort column.
	ErrInvalidSort = errors.New("invalid sort column")
)

// Sort columns understood by ContentBuilder.
const (
	SortNatural = ""
	SortTitle   = "title"
	SortPath    = "path"
	SortChanged = "changed"
	SortCreated = "created"
)

var sortColumns = map[string]string{
	SortNatural: "n.sort_key",
	SortTitle:   "t.title COLLATE NOCASE",
	SortPath:    "n.path",
	SortChanged: "n.changed_at",
	SortCreated: "n.created_at",
}

// ContentBuilder selects the pages below a data source, the way a smart
// content block does.
type ContentBuilder struct {
	// Layout locates the webspace content roots.
	Layout store.Options

	// DataSource is the page the selection starts from, relative to the
	// webspace content root. Empty selects from the content root.
	DataSource string

	// IncludeSubFolders selects every descendant of the data source instead
	// of its direct children only.
	IncludeSubFolders bool

	// Templates restricts the selection to pages using one of these
	// templates.
	Templates []string

	// Excluded lists page paths (relative to the content root) removed
	// from the selection together with their descendants.
	Excluded []string

	SortBy        string
	SortDesc      bool
	PublishedOnly bool

	// Fields are passed through to the row mapper.
	Fields []query.Field
}

var _ query.Builder = (*ContentBuilder)(nil)

// Published implements query.Builder.
func (b *ContentBuilder) Published() bool { return b.PublishedOnly }

// Build implements query.Builder. Pages must exist in at least one of the
// locales (and be published there when PublishedOnly is set). Title
// sorting uses the first locale.
func (b *ContentBuilder) Build(webspaceKey string, locales []string) (string, []query.Field, error) {
	if len(locales) == 0 {
		return "", nil, ErrNoLocales
	}
	orderCol, ok := sortColumns[b.SortBy]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidSort, b.SortBy)
	}

	source := paths.Join(b.Layout.ContentPath(webspaceKey), b.DataSource)

	var conditions []string
	conditions = append(conditions, "n.webspace = "+sqlutil.QuoteLiteral(webspaceKey))
	if b.IncludeSubFolders {
		conditions = append(conditions, "n.path LIKE "+sqlutil.QuoteLiteral(sqlutil.EscapeLike(source)+"/%")+` ESCAPE '\'`)
	} else {
		conditions = append(conditions, "n.parent_path = "+sqlutil.QuoteLiteral(source))
	}
	if len(b.Templates) > 0 {
		conditions = append(conditions, "n.template IN "+sqlutil.QuoteList(b.Templates))
	}
	for _, rel := range b.Excluded {
		excluded := paths.Join(b.Layout.ContentPath(webspaceKey), rel)
		conditions = append(conditions, fmt.Sprintf(
			`n.path <> %s AND n.path NOT LIKE %s ESCAPE '\'`,
			sqlutil.QuoteLiteral(excluded),
			sqlutil.QuoteLiteral(sqlutil.EscapeLike(excluded)+"/%"),
		))
	}

	localized := "l.node_id = n.id AND l.locale IN " + sqlutil.QuoteList(locales)
	if b.PublishedOnly {
		localized += " AND l.state = 'published'"
	}
	conditions = append(conditions, "EXISTS (SELECT 1 FROM localizations l WHERE "+localized+")")

	columns := "n.path AS page_path, n.id AS page_id, n.template AS page_template, n.changed_at AS page_changed"
	from := "nodes n"
	if b.SortBy == SortTitle {
		columns += ", t.title AS title"
		from += " LEFT JOIN localizations t ON t.node_id = n.id AND t.locale = " + sqlutil.QuoteLiteral(locales[0])
	}

	direction := "ASC"
	if b.SortDesc {
		direction = "DESC"
	}
	order := orderCol + " " + direction
	if b.SortBy != SortNatural {
		order += ", n.sort_key"
	}

	statement := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY %s",
		columns, from, strings.Join(conditions, " AND "), order,
	)
	return statement, b.Fields, nil
}
