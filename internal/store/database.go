// Package store implements the SQLite-backed content store: nodes addressed
// by absolute path, each holding per-locale localizations.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/2lenet/sulu/internal/paths"
)

// SchemaVersion is bumped whenever the table layout changes.
const SchemaVersion = 1

// Default layout of the node tree: /<root>/<webspace>/<contents>.
const (
	DefaultRoot      = "cms"
	DefaultContents  = "contents"
	DefaultCacheSize = 1024
)

var (
	// ErrNodeNotFound indicates the requested node path is not in the store.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidPath indicates a node path outside any webspace or with an invalid name.
	ErrInvalidPath = errors.New("invalid node path")
	// ErrParentNotFound indicates a node was saved before its parent.
	ErrParentNotFound = errors.New("parent node not found")
	// ErrUnsupportedLanguage indicates a query language the store cannot compile.
	ErrUnsupportedLanguage = errors.New("unsupported query language")
	// ErrEmptyStatement indicates a query with nothing left to run.
	ErrEmptyStatement = errors.New("empty statement")
)

// Options configures the node tree layout and session caching.
type Options struct {
	// Root is the name of the top-level node holding all webspaces.
	Root string
	// Contents is the name of the content root below each webspace node.
	Contents string
	// CacheSize is the number of nodes each session keeps cached.
	CacheSize int
}

// ContentPath returns the content root path of a webspace under this
// layout. Empty names fall back to the defaults.
func (o Options) ContentPath(webspaceKey string) string {
	o = o.withDefaults()
	return paths.Join("/", o.Root, webspaceKey, o.Contents)
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Root) == "" {
		o.Root = DefaultRoot
	}
	if strings.TrimSpace(o.Contents) == "" {
		o.Contents = DefaultContents
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	return o
}

// Store is the SQLite content store handle.
type Store struct {
	db   *sql.DB
	opts Options
}

// Open opens or creates the store database at dbPath.
func Open(dbPath string, opts Options) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, opts: opts.withDefaults()}
	if err := s.initialize(true); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens an in-memory store (for testing).
func OpenInMemory(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every pooled connection to :memory: would see its own empty database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, opts: opts.withDefaults()}
	if err := s.initialize(false); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Options returns the effective store options.
func (s *Store) Options() Options {
	return s.opts
}

func (s *Store) initialize(wal bool) error {
	if wal {
		if _, err := s.db.Exec(`
			PRAGMA journal_mode = WAL;
			PRAGMA synchronous = NORMAL;
		`); err != nil {
			return fmt.Errorf("failed to configure database: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			parent_path TEXT NOT NULL,
			name TEXT NOT NULL,
			depth INTEGER NOT NULL,
			webspace TEXT NOT NULL,
			template TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			sort_key TEXT NOT NULL,       -- pre-order key: parent key + order + name
			permissions TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER,
			changed_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS localizations (
			node_id TEXT NOT NULL,
			locale TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT 'draft',
			published_at INTEGER,
			fields TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (node_id, locale)
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_webspace_sort ON nodes(webspace, sort_key);
		CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_path);
		CREATE INDEX IF NOT EXISTS idx_localizations_locale ON localizations(locale, state);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// ContentPath returns the content root path of a webspace,
// e.g. "/cms/io/contents".
func (s *Store) ContentPath(webspaceKey string) string {
	return s.opts.ContentPath(webspaceKey)
}

// WebspaceOf returns the key of the webspace whose content tree contains p
// (the content root itself included).
func (s *Store) WebspaceOf(p string) (string, bool) {
	prefix := paths.Separator + s.opts.Root + paths.Separator
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(p, prefix)
	parts := strings.SplitN(rest, paths.Separator, 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] != s.opts.Contents {
		return "", false
	}
	return parts[0], true
}

// Webspaces returns the keys of all webspaces holding at least one node.
func (s *Store) Webspaces() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT webspace FROM nodes ORDER BY webspace`)
	if err != nil {
		return nil, fmt.Errorf("failed to list webspaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ws string
		if err := rows.Scan(&ws); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Stats holds row counts of the store.
type Stats struct {
	NodeCount         int `json:"node_count"`
	LocalizationCount int `json:"localization_count"`
}

// Stats returns row counts of the store.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&st.NodeCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM localizations`).Scan(&st.LocalizationCount); err != nil {
		return nil, err
	}
	return &st, nil
}
