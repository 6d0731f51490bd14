package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/store"
)

const contentRoot = "/cms/io/contents"

type fakeQuery struct {
	statement string
	limit     *int
	offset    *int
	rows      []store.Row
	err       error
}

func (q *fakeQuery) Statement() string    { return q.statement }
func (q *fakeQuery) SetLimit(limit int)   { q.limit = &limit }
func (q *fakeQuery) SetOffset(offset int) { q.offset = &offset }
func (q *fakeQuery) Execute() (*store.Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	return store.NewResult([]string{"page_path"}, q.rows...), nil
}

type fakeSession struct {
	rows       []store.Row
	createErr  error
	execErr    error
	preloadErr error

	queries  []*fakeQuery
	preloads [][]string
}

func (s *fakeSession) ContentPath(webspaceKey string) string {
	return "/cms/" + webspaceKey + "/contents"
}

func (s *fakeSession) QueryManager() store.QueryManager { return s }

func (s *fakeSession) CreateQuery(statement, language string) (store.Query, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	q := &fakeQuery{statement: statement, rows: s.rows, err: s.execErr}
	s.queries = append(s.queries, q)
	return q, nil
}

func (s *fakeSession) GetNodes(nodePaths []string) (map[string]*model.Node, error) {
	s.preloads = append(s.preloads, nodePaths)
	return nil, s.preloadErr
}

type fakeBuilder struct {
	statement string
	fields    []Field
	published bool
	err       error
}

func (b *fakeBuilder) Build(string, []string) (string, []Field, error) {
	return b.statement, b.fields, b.err
}

func (b *fakeBuilder) Published() bool { return b.published }

// depthMapper maps each row to an item for the first locale, applying the
// same depth rule as the executor.
type depthMapper struct {
	req   MapRequest
	calls int
	err   error
}

func (m *depthMapper) MapRows(rows []store.Row, req MapRequest) ([]model.Item, error) {
	m.req = req
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Item
	for _, row := range rows {
		p := row.Path(store.SelectorPage)
		if !ShouldInclude(p, paths.Depth(contentRoot), req.Depth) {
			continue
		}
		out = append(out, model.Item{ID: p, Path: p, Locale: req.Locales[0]})
	}
	return out, nil
}

type recordingStopwatch struct{ events []string }

func (r *recordingStopwatch) Start(name string) { r.events = append(r.events, "start "+name) }
func (r *recordingStopwatch) Stop(name string)  { r.events = append(r.events, "stop "+name) }

func rowsAt(rel ...string) []store.Row {
	out := make([]store.Row, len(rel))
	for i, r := range rel {
		out[i] = store.PathRow(paths.Join(contentRoot, r))
	}
	return out
}

func itemPaths(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

func TestShouldInclude(t *testing.T) {
	rootDepth := paths.Depth(contentRoot)
	tests := []struct {
		name  string
		rel   string
		depth int
		want  bool
	}{
		{"unlimited includes deep nodes", "a/b/c/d", DepthUnlimited, true},
		{"any negative depth is unlimited", "a/b/c/d", -5, true},
		{"zero depth does not filter", "a/b/c/d", 0, true},
		{"within limit", "a", 2, true},
		{"at limit", "a/b", 2, true},
		{"beyond limit", "a/b/c", 2, false},
		{"root itself", "", 1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldInclude(paths.Join(contentRoot, tc.rel), rootDepth, tc.depth)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCollectPaths(t *testing.T) {
	rootDepth := paths.Depth(contentRoot)
	// Relative depths: "" is 0, a is 1, a/b is 2, a/b/c is 3.
	rows := rowsAt("", "a", "a/b", "a/b/c", "a", "a/b")

	got := collectPaths(rows, rootDepth, 2)
	assert.Equal(t, []string{
		contentRoot,
		contentRoot + "/a",
		contentRoot + "/a/b",
	}, got)

	assert.Len(t, collectPaths(rows, rootDepth, DepthUnlimited), 4)
	assert.Len(t, collectPaths(rows, rootDepth, 0), 4)
	assert.Empty(t, collectPaths([]store.Row{store.NewRow(nil)}, rootDepth, DepthUnlimited))
}

func TestExecuteLimitOffset(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		wantLimit     *int
		wantOffset    *int
	}{
		{"both applied", 10, 5, intPtr(10), intPtr(5)},
		{"zero values are not applied", 0, 0, nil, nil},
		{"limit only", 3, 0, intPtr(3), nil},
		{"offset only", 0, 7, nil, intPtr(7)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess := &fakeSession{rows: rowsAt("a")}
			exec := NewExecutor(sess, &depthMapper{})

			opts := DefaultOptions()
			opts.Limit = tc.limit
			opts.Offset = tc.offset
			_, err := exec.Execute("io", []string{"en"}, &fakeBuilder{statement: "SELECT"}, opts)
			require.NoError(t, err)

			require.Len(t, sess.queries, 1)
			assert.Equal(t, tc.wantLimit, sess.queries[0].limit)
			assert.Equal(t, tc.wantOffset, sess.queries[0].offset)
			assert.Equal(t, "SELECT", sess.queries[0].statement)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestExecutePreloadsFilteredPathsOnce(t *testing.T) {
	sess := &fakeSession{rows: rowsAt("a", "a/b", "a/b/c", "a/b/c/d", "a/b")}
	mapper := &depthMapper{}
	exec := NewExecutor(sess, mapper)

	opts := DefaultOptions()
	opts.Depth = 2
	_, err := exec.Execute("io", []string{"en"}, &fakeBuilder{}, opts)
	require.NoError(t, err)

	require.Len(t, sess.preloads, 1)
	assert.Equal(t, []string{contentRoot + "/a", contentRoot + "/a/b"}, sess.preloads[0])
	assert.Equal(t, 1, mapper.calls)
}

func TestExecutePassesMappingContext(t *testing.T) {
	alice := &security.User{Username: "alice", RoleNames: []string{"editor"}}
	sess := &fakeSession{rows: rowsAt("a")}
	mapper := &depthMapper{}
	fields := []Field{{Name: "title", Property: "title"}}
	exec := NewExecutor(sess, mapper,
		WithTokenStorage(security.NewMemoryTokenStorage(security.PrincipalToken{Value: alice})))

	opts := DefaultOptions()
	opts.Depth = 3
	opts.Permission = security.PermissionView
	_, err := exec.Execute("io", []string{"en", "de"}, &fakeBuilder{fields: fields, published: true}, opts)
	require.NoError(t, err)

	assert.Equal(t, MapRequest{
		WebspaceKey:   "io",
		Locales:       []string{"en", "de"},
		Fields:        fields,
		Depth:         3,
		PublishedOnly: true,
		Identity:      alice,
		Permission:    security.PermissionView,
	}, mapper.req)
}

func TestExecuteWithoutIdentity(t *testing.T) {
	sess := &fakeSession{rows: rowsAt("a")}
	mapper := &depthMapper{}
	exec := NewExecutor(sess, mapper)

	assert.Nil(t, exec.CurrentIdentity())
	_, err := exec.Execute("io", []string{"en"}, &fakeBuilder{}, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, mapper.req.Identity)
}

func TestExecuteTree(t *testing.T) {
	sess := &fakeSession{rows: rowsAt("a", "a/b", "a/b/c")}
	exec := NewExecutor(sess, &depthMapper{})

	// Relative depths: a is 1, a/b is 2, a/b/c is 3.
	res, err := exec.Execute("io", []string{"en"}, &fakeBuilder{}, Options{Depth: 2, MoveUp: true})
	require.NoError(t, err)

	assert.Equal(t, []string{contentRoot + "/a", contentRoot + "/a/b"}, itemPaths(res.Items))
	require.Len(t, res.Tree, 1)
	assert.Equal(t, contentRoot+"/a", res.Tree[0].Item.Path)
	require.Len(t, res.Tree[0].Children, 1)
	assert.Equal(t, contentRoot+"/a/b", res.Tree[0].Children[0].Item.Path)
}

func TestExecuteFlatHasNoTree(t *testing.T) {
	exec := NewExecutor(&fakeSession{rows: rowsAt("a")}, &depthMapper{})
	res, err := exec.Execute("io", []string{"en"}, &fakeBuilder{}, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, res.Tree)
	assert.Len(t, res.Items, 1)
}

func TestExecuteStopwatchSpans(t *testing.T) {
	sw := &recordingStopwatch{}
	exec := NewExecutor(&fakeSession{rows: rowsAt("a")}, &depthMapper{}, WithStopwatch(sw))

	_, err := exec.Execute("io", []string{"en"}, &fakeBuilder{}, Options{Depth: DepthUnlimited})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start " + SpanBuildQuery, "stop " + SpanBuildQuery,
		"start " + SpanExecuteQuery, "stop " + SpanExecuteQuery,
		"start " + SpanGetPaths, "stop " + SpanGetPaths,
		"start " + SpanPreload, "stop " + SpanPreload,
		"start " + SpanRowsToList, "stop " + SpanRowsToList,
		"start " + SpanBuildTree, "stop " + SpanBuildTree,
	}, sw.events)
}

func TestExecuteErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")

	t.Run("nil builder", func(t *testing.T) {
		sess := &fakeSession{}
		_, err := NewExecutor(sess, &depthMapper{}).Execute("io", nil, nil, DefaultOptions())
		assert.ErrorIs(t, err, ErrNilBuilder)
		assert.Empty(t, sess.queries)
	})

	t.Run("builder failure stops before the store", func(t *testing.T) {
		sess := &fakeSession{}
		_, err := NewExecutor(sess, &depthMapper{}).Execute("io", nil, &fakeBuilder{err: boom}, DefaultOptions())
		assert.Same(t, boom, err)
		assert.Empty(t, sess.queries)
		assert.Empty(t, sess.preloads)
	})

	t.Run("compilation failure", func(t *testing.T) {
		sess := &fakeSession{createErr: boom}
		_, err := NewExecutor(sess, &depthMapper{}).Execute("io", nil, &fakeBuilder{}, DefaultOptions())
		assert.Same(t, boom, err)
	})

	t.Run("execution failure", func(t *testing.T) {
		sess := &fakeSession{execErr: boom}
		_, err := NewExecutor(sess, &depthMapper{}).Execute("io", nil, &fakeBuilder{}, DefaultOptions())
		assert.Same(t, boom, err)
		assert.Empty(t, sess.preloads)
	})

	t.Run("preload failure skips mapping", func(t *testing.T) {
		sess := &fakeSession{rows: rowsAt("a"), preloadErr: boom}
		mapper := &depthMapper{}
		_, err := NewExecutor(sess, mapper).Execute("io", []string{"en"}, &fakeBuilder{}, DefaultOptions())
		assert.Same(t, boom, err)
		assert.Zero(t, mapper.calls)
	})

	t.Run("mapping failure", func(t *testing.T) {
		sess := &fakeSession{rows: rowsAt("a")}
		_, err := NewExecutor(sess, &depthMapper{err: boom}).Execute("io", []string{"en"}, &fakeBuilder{}, DefaultOptions())
		assert.Same(t, boom, err)
	})
}
