package store

import (
	"fmt"
	"strings"

	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/sqlutil"
)

// LanguageSQL is the native query language of the store: SQLite SELECT
// statements over the nodes and localizations tables.
const LanguageSQL = "SQL"

// SelectorPage is the selector under which statements expose the node path
// of each result row (as column "page_path").
const SelectorPage = "page"

// QueryManager compiles statements into executable queries.
type QueryManager interface {
	CreateQuery(statement, language string) (Query, error)
}

// Query is an executable statement supporting limit and offset.
type Query interface {
	Statement() string
	SetLimit(limit int)
	SetOffset(offset int)
	Execute() (*Result, error)
}

type sqlQueryManager struct {
	session *Session
}

func (m *sqlQueryManager) CreateQuery(statement, language string) (Query, error) {
	if !strings.EqualFold(language, LanguageSQL) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	statement = strings.TrimSpace(statement)
	statement = strings.TrimRight(statement, "; \t\n")
	if statement == "" {
		return nil, ErrEmptyStatement
	}
	return &sqlQuery{session: m.session, statement: statement}, nil
}

type sqlQuery struct {
	session   *Session
	statement string
	limit     int
	offset    int
}

func (q *sqlQuery) Statement() string { return q.statement }

func (q *sqlQuery) SetLimit(limit int) { q.limit = limit }

func (q *sqlQuery) SetOffset(offset int) { q.offset = offset }

// Execute runs the statement and materializes the result rows.
func (q *sqlQuery) Execute() (*Result, error) {
	stmt := q.statement
	if q.limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	if q.offset > 0 {
		if q.limit <= 0 {
			stmt += " LIMIT -1"
		}
		stmt += fmt.Sprintf(" OFFSET %d", q.offset)
	}
	logger.Debug("executing statement: %s", stmt)

	q.session.record(0, 0, 1)
	rows, err := q.session.store.db.Query(stmt)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w (SQL: %s)", err, stmt)
	}
	columns, maps, err := sqlutil.ScanMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read query result: %w", err)
	}

	result := &Result{columns: columns, rows: make([]Row, len(maps))}
	for i, m := range maps {
		result.rows[i] = Row{values: m}
	}
	return result, nil
}

// Result is an ordered, materialized query result.
type Result struct {
	columns []string
	rows    []Row
}

// NewResult builds a result from rows (for collaborators and tests).
func NewResult(columns []string, rows ...Row) *Result {
	return &Result{columns: columns, rows: rows}
}

// Columns returns the selected column names.
func (r *Result) Columns() []string { return r.columns }

// Rows returns the rows in result order.
func (r *Result) Rows() []Row { return r.rows }

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.rows) }

// Row is a single result row.
type Row struct {
	values map[string]any
}

// NewRow builds a row from column values.
func NewRow(values map[string]any) Row {
	return Row{values: values}
}

// PathRow builds a row exposing only a page path.
func PathRow(nodePath string) Row {
	return Row{values: map[string]any{SelectorPage + "_path": nodePath}}
}

// Path returns the node path exposed for selector, or "" when absent.
func (r Row) Path(selector string) string {
	v, _ := r.values[selector+"_path"].(string)
	return v
}

// Value returns the value of a column.
func (r Row) Value(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}
