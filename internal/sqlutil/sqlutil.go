package sqlutil

import (
	"database/sql"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONArray encodes items as a JSON array for `IN (SELECT value FROM
// json_each(?))`, which binds any number of values through one parameter.
// A nil slice encodes as "[]" so the clause matches nothing.
func JSONArray(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	return json.MarshalToString(items)
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
// Embedded quotes are doubled; NUL bytes are dropped since SQLite text
// literals cannot carry them.
func QuoteLiteral(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteList renders items as a parenthesized list of quoted literals for
// use in an IN clause. An empty list renders as "(NULL)".
func QuoteList(items []string) string {
	if len(items) == 0 {
		return "(NULL)"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = QuoteLiteral(item)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// EscapeLike escapes the LIKE wildcards in s using '\' as escape character.
// Pair the result with `ESCAPE '\'`.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ScanRows scans all rows into a slice using the provided scanner.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ScanMaps scans rows of unknown shape into column-name keyed maps,
// returning the column names in select order. []byte values are converted
// to strings.
func ScanMaps(rows *sql.Rows) ([]string, []map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, err
	}
	out, err := ScanRows(rows, func(rows *sql.Rows) (map[string]any, error) {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				m[col] = string(b)
				continue
			}
			m[col] = values[i]
		}
		return m, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}
