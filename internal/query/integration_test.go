package query_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2lenet/sulu/internal/mapper"
	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/query"
	"github.com/2lenet/sulu/internal/querybuilder"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/stopwatch"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/testutil"
	"github.com/2lenet/sulu/internal/tree"
)

func seedTree(t *testing.T) *testutil.TestStore {
	t.Helper()
	return testutil.NewTestStore(t).
		WithPage("io", "a", "A", testutil.Restricted("editor", security.PermissionView)).
		WithPage("io", "a/b", "B").
		WithPage("io", "a/b/c", "C").
		WithPage("io", "d", "D").
		Build()
}

func newExecutor(sess *store.Session, opts ...query.Option) *query.Executor {
	return query.NewExecutor(sess, mapper.New(sess, nil), opts...)
}

func paths(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

func shape(nodes []*tree.Node[model.Item]) map[string][]string {
	out := make(map[string][]string)
	tree.Walk(nodes, func(n *tree.Node[model.Item], _ int) bool {
		kids := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			kids = append(kids, c.Item.Path)
		}
		out[n.Item.Path] = kids
		return true
	})
	return out
}

func TestExecuteDepthScenario(t *testing.T) {
	ts := seedTree(t)
	sess := ts.Session()
	exec := newExecutor(sess)
	// a together with its whole subtree, d left out.
	stmtBuilder := &querybuilder.StatementBuilder{
		Statement: `SELECT n.path AS page_path FROM nodes n
			WHERE n.webspace = {webspace} AND (n.path = {content_path} || '/a' OR n.path LIKE {content_path} || '/a/%')
			ORDER BY n.sort_key`,
	}

	opts := query.DefaultOptions()
	opts.Depth = 2
	res, err := exec.Execute("io", []string{"en"}, stmtBuilder, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"/cms/io/contents/a", "/cms/io/contents/a/b"}, paths(res.Items))
	assert.Nil(t, res.Tree)

	stats := sess.Stats()
	assert.Equal(t, 2, stats.RoundTrips, "one statement and one preload")
	assert.Equal(t, 2, stats.Misses)
	assert.Equal(t, 2, stats.Hits, "mapper served from the preloaded cache")

	opts.Flat = false
	opts.MoveUp = true
	res, err = exec.Execute("io", []string{"en"}, stmtBuilder, opts)
	require.NoError(t, err)
	require.Len(t, res.Tree, 1)
	assert.Equal(t, map[string][]string{
		"/cms/io/contents/a":   {"/cms/io/contents/a/b"},
		"/cms/io/contents/a/b": {},
	}, shape(res.Tree))
	assert.Equal(t, 3, sess.Stats().RoundTrips, "second run only executes the statement")
}

func TestExecuteIsRepeatable(t *testing.T) {
	ts := seedTree(t)
	exec := newExecutor(ts.Session())
	builder := &querybuilder.ContentBuilder{IncludeSubFolders: true}

	first, err := exec.Execute("io", []string{"en"}, builder, query.DefaultOptions())
	require.NoError(t, err)
	second, err := exec.Execute("io", []string{"en"}, builder, query.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first.Items, 4)
}

func TestExecuteMoveUpWithDeniedParent(t *testing.T) {
	ts := seedTree(t)
	builder := &querybuilder.ContentBuilder{IncludeSubFolders: true}
	opts := query.Options{Depth: query.DepthUnlimited, Permission: security.PermissionView}

	t.Run("no identity configured", func(t *testing.T) {
		exec := newExecutor(ts.Session())
		assert.Nil(t, exec.CurrentIdentity())

		opts := opts
		opts.MoveUp = true
		res, err := exec.Execute("io", []string{"en"}, builder, opts)
		require.NoError(t, err)
		assert.NotContains(t, paths(res.Items), "/cms/io/contents/a")
		assert.Equal(t, map[string][]string{
			"/cms/io/contents/a/b":   {"/cms/io/contents/a/b/c"},
			"/cms/io/contents/a/b/c": {},
			"/cms/io/contents/d":     {},
		}, shape(res.Tree))
	})

	t.Run("orphans dropped without move up", func(t *testing.T) {
		exec := newExecutor(ts.Session())
		res, err := exec.Execute("io", []string{"en"}, builder, opts)
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{
			"/cms/io/contents/d": {},
		}, shape(res.Tree))
	})

	t.Run("identity from token storage", func(t *testing.T) {
		tokens := security.NewMemoryTokenStorage(security.PrincipalToken{
			Value: &security.User{Username: "jane", RoleNames: []string{"editor"}},
		})
		exec := newExecutor(ts.Session(), query.WithTokenStorage(tokens))
		require.NotNil(t, exec.CurrentIdentity())
		assert.Equal(t, "jane", exec.CurrentIdentity().Identifier())

		res, err := exec.Execute("io", []string{"en"}, builder, opts)
		require.NoError(t, err)
		require.Len(t, res.Tree, 2)
		assert.Equal(t, "/cms/io/contents/a", res.Tree[0].Item.Path)
		assert.Equal(t, 4, tree.Count(res.Tree))
	})

	t.Run("anonymous principal", func(t *testing.T) {
		tokens := security.NewMemoryTokenStorage(security.PrincipalToken{Value: "anon."})
		exec := newExecutor(ts.Session(), query.WithTokenStorage(tokens))
		assert.Nil(t, exec.CurrentIdentity())
	})
}

func TestExecuteReportsSpans(t *testing.T) {
	ts := seedTree(t)
	sw := stopwatch.New()
	exec := newExecutor(ts.Session(), query.WithStopwatch(sw))

	opts := query.DefaultOptions()
	opts.Flat = false
	_, err := exec.Execute("io", []string{"en"}, &querybuilder.ContentBuilder{}, opts)
	require.NoError(t, err)

	var names []string
	for _, ev := range sw.Events() {
		names = append(names, ev.Name)
		assert.False(t, ev.Running, ev.Name)
	}
	assert.Equal(t, []string{
		query.SpanBuildQuery,
		query.SpanExecuteQuery,
		query.SpanGetPaths,
		query.SpanPreload,
		query.SpanRowsToList,
		query.SpanBuildTree,
	}, names)
}

func TestExecuteBuilderErrorIsReturned(t *testing.T) {
	ts := seedTree(t)
	exec := newExecutor(ts.Session())
	_, err := exec.Execute("io", nil, &querybuilder.ContentBuilder{}, query.DefaultOptions())
	assert.ErrorIs(t, err, querybuilder.ErrNoLocales)
}

func TestExecuteTreeKeepsLocalesApart(t *testing.T) {
	ts := testutil.NewTestStore(t).
		WithPage("io", "a", "A").
		WithPage("io", "a/b", "B", testutil.Localized("de", "B de", model.StatePublished)).
		Build()
	exec := newExecutor(ts.Session())
	builder := &querybuilder.ContentBuilder{IncludeSubFolders: true}
	opts := query.Options{Depth: query.DepthUnlimited}

	res, err := exec.Execute("io", []string{"en", "de"}, builder, opts)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	require.Len(t, res.Tree, 1)
	root := res.Tree[0]
	assert.Equal(t, "en", root.Item.Locale)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "en", root.Children[0].Item.Locale)

	opts.MoveUp = true
	res, err = exec.Execute("io", []string{"en", "de"}, builder, opts)
	require.NoError(t, err)
	require.Len(t, res.Tree, 2)
	assert.Equal(t, "/cms/io/contents/a/b", res.Tree[1].Item.Path)
	assert.Equal(t, "de", res.Tree[1].Item.Locale)
}

func TestExecutePreloadExceedingCacheSize(t *testing.T) {
	ts := testutil.NewTestStore(t).WithOptions(store.Options{CacheSize: 8})
	for i := 0; i < 30; i++ {
		ts.WithPage("io", fmt.Sprintf("page-%02d", i), fmt.Sprintf("Page %d", i))
	}
	ts.Build()
	sess := ts.Session()

	res, err := newExecutor(sess).Execute("io", []string{"en"}, &querybuilder.ContentBuilder{}, query.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, res.Items, 30)

	stats := sess.Stats()
	assert.Equal(t, 2, stats.RoundTrips, "one statement and one preload")
	assert.Equal(t, 30, stats.Misses)
	assert.Equal(t, 30, stats.Hits)
}
