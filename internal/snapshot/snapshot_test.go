package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/testutil"
)

func seed(t *testing.T) *testutil.TestStore {
	t.Helper()
	return testutil.NewTestStore(t).
		WithPage("io", "a", "A", testutil.Field("en", "summary", "first")).
		WithPage("io", "a/b", "B", testutil.Localized("de", "B de", model.StateDraft)).
		WithPage("blog", "post", "Post", testutil.Restricted("editor", security.PermissionView)).
		Build()
}

func emptyStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenInMemory(store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, c := range []Compressor{NewNoOpCompressor(), NewZstdCompressor()} {
		t.Run(c.Name(), func(t *testing.T) {
			src := seed(t)
			var buf bytes.Buffer
			n, err := Export(&buf, src.Store, c)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			dst := emptyStore(t)
			n, err = Import(bytes.NewReader(buf.Bytes()), dst, c, false)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			want, err := src.Store.Nodes("")
			require.NoError(t, err)
			got, err := dst.Nodes("")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestReadHeader(t *testing.T) {
	src := seed(t)
	var buf bytes.Buffer
	_, err := Export(&buf, src.Store, NewNoOpCompressor())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)

	header, nodes, err := Read(&buf, NewNoOpCompressor())
	require.NoError(t, err)
	assert.Equal(t, Format, header.Format)
	assert.Equal(t, store.SchemaVersion, header.SchemaVersion)
	assert.Equal(t, []string{"blog", "io"}, header.Webspaces)
	assert.Equal(t, 3, header.Nodes)
	assert.Len(t, nodes, 3)
}

func TestReadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no header", `{"path":"/cms/io/contents/a"}` + "\n"},
		{"newer schema", `{"format":"sulu-snapshot","schema_version":99}` + "\n"},
		{"bad node", `{"format":"sulu-snapshot","schema_version":1}` + "\n{nope\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Read(strings.NewReader(tc.data), NewNoOpCompressor())
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}
}

func TestFilesAndReplace(t *testing.T) {
	src := seed(t)
	path := filepath.Join(t.TempDir(), "content.jsonl.zst")

	n, err := ExportFile(path, src.Store)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), Format, "compressed by extension")

	dst := emptyStore(t)
	stale := &model.Node{
		Path:          "/cms/io/contents/stale",
		Localizations: map[string]*model.Localization{"en": {Title: "Stale"}},
	}
	require.NoError(t, dst.SaveNode(stale))

	n, err = ImportFile(path, dst, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	nodes, err := dst.Nodes("io")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	_, err = ImportFile(filepath.Join(t.TempDir(), "missing.jsonl"), dst, false)
	assert.Error(t, err)
}

func TestCompressorFor(t *testing.T) {
	assert.Equal(t, "zstd", CompressorFor("x.jsonl.zst").Name())
	assert.Equal(t, "noop", CompressorFor("x.jsonl").Name())
}

func TestFileName(t *testing.T) {
	zc := NewZstdCompressor()
	assert.Equal(t, "x.jsonl.zst", FileName("x.jsonl", zc))
	assert.Equal(t, "x.jsonl.zst", FileName("x.jsonl.zst", zc))
	assert.Equal(t, "x.jsonl", FileName("x.jsonl", NewNoOpCompressor()))
	assert.Equal(t, "zstd", CompressorFor(FileName("x.jsonl", zc)).Name())
}
