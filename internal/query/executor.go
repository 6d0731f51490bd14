// Package query executes content queries: it runs a builder's statement
// against a store session, preloads the matched nodes in bulk, maps rows to
// items and optionally nests them into a tree.
package query

import (
	"errors"

	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/tree"
)

// ErrNilBuilder is returned when Execute is called without a builder.
var ErrNilBuilder = errors.New("query builder is required")

// Span names reported to the stopwatch.
const (
	SpanBuildQuery   = "ContentQuery::execute.build-query"
	SpanExecuteQuery = "ContentQuery::execute.execute-query"
	SpanGetPaths     = "ContentQuery::execute.preload-nodes.get-paths"
	SpanPreload      = "ContentQuery::execute.preload-nodes.execute"
	SpanRowsToList   = "ContentQuery::execute.rowsToList"
	SpanBuildTree    = "ContentQuery::execute.build-tree"
)

// Executor executes content queries against a store session.
// It keeps no per-call state and may be shared between goroutines as long
// as its collaborators allow it.
type Executor struct {
	session   Session
	mapper    RowMapper
	stopwatch Stopwatch
	tokens    security.TokenStorage
}

// Option configures an Executor.
type Option func(*Executor)

// WithStopwatch reports phase timings to sw.
func WithStopwatch(sw Stopwatch) Option {
	return func(e *Executor) {
		if sw != nil {
			e.stopwatch = sw
		}
	}
}

// WithTokenStorage resolves the current identity from storage.
func WithTokenStorage(storage security.TokenStorage) Option {
	return func(e *Executor) { e.tokens = storage }
}

// NewExecutor creates a new query executor.
func NewExecutor(session Session, mapper RowMapper, opts ...Option) *Executor {
	e := &Executor{session: session, mapper: mapper, stopwatch: noopStopwatch{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute builds and runs the builder's statement for a webspace and
// returns the mapped items, nested into a tree unless opts.Flat is set.
//
// Any failure (building, executing, preloading or mapping) aborts the call
// and is returned as is.
func (e *Executor) Execute(webspaceKey string, locales []string, builder Builder, opts Options) (*Result, error) {
	if builder == nil {
		return nil, ErrNilBuilder
	}
	logger.Section("content query " + webspaceKey)

	e.stopwatch.Start(SpanBuildQuery)
	statement, fields, err := builder.Build(webspaceKey, locales)
	e.stopwatch.Stop(SpanBuildQuery)
	if err != nil {
		return nil, err
	}

	e.stopwatch.Start(SpanExecuteQuery)
	result, err := e.run(statement, opts.Limit, opts.Offset)
	e.stopwatch.Stop(SpanExecuteQuery)
	if err != nil {
		return nil, err
	}
	logger.Debug("query returned %d rows", result.Len())

	// Load every node the mapper will touch in one round trip instead of
	// one fetch per row.
	e.stopwatch.Start(SpanGetPaths)
	rootDepth := paths.Depth(e.session.ContentPath(webspaceKey))
	preloadPaths := collectPaths(result.Rows(), rootDepth, opts.Depth)
	e.stopwatch.Stop(SpanGetPaths)

	e.stopwatch.Start(SpanPreload)
	err = e.preload(preloadPaths)
	e.stopwatch.Stop(SpanPreload)
	if err != nil {
		return nil, err
	}

	e.stopwatch.Start(SpanRowsToList)
	items, err := e.mapper.MapRows(result.Rows(), MapRequest{
		WebspaceKey:   webspaceKey,
		Locales:       locales,
		Fields:        fields,
		Depth:         opts.Depth,
		PublishedOnly: builder.Published(),
		Identity:      e.CurrentIdentity(),
		Permission:    opts.Permission,
	})
	e.stopwatch.Stop(SpanRowsToList)
	if err != nil {
		return nil, err
	}
	logger.Debug("mapped %d items", len(items))

	out := &Result{Items: items}
	if !opts.Flat {
		e.stopwatch.Start(SpanBuildTree)
		out.Tree = tree.Convert(items, opts.MoveUp)
		e.stopwatch.Stop(SpanBuildTree)
		logger.Debug("built tree with %d roots", len(out.Tree))
	}
	return out, nil
}

// run compiles the statement and executes it. Limit and offset are only
// applied when non-zero.
func (e *Executor) run(statement string, limit, offset int) (*store.Result, error) {
	q, err := e.session.QueryManager().CreateQuery(statement, store.LanguageSQL)
	if err != nil {
		return nil, err
	}
	if limit != 0 {
		q.SetLimit(limit)
	}
	if offset != 0 {
		q.SetOffset(offset)
	}
	return q.Execute()
}

// preload warms the session cache with the given nodes.
func (e *Executor) preload(nodePaths []string) error {
	logger.Debug("preloading %d nodes", len(nodePaths))
	_, err := e.session.GetNodes(nodePaths)
	return err
}

// CurrentIdentity returns the authenticated identity of the configured
// token storage, or nil.
func (e *Executor) CurrentIdentity() security.Identity {
	return security.CurrentIdentity(e.tokens)
}
