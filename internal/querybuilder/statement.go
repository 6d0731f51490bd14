package querybuilder

import (
	"strings"

	"github.com/2lenet/sulu/internal/query"
	"github.com/2lenet/sulu/internal/sqlutil"
	"github.com/2lenet/sulu/internal/store"
)

// StatementBuilder passes a hand-written statement to the executor.
//
// The tokens {webspace}, {locale} and {content_path} are replaced by the
// quoted webspace key, first locale and webspace content root. The
// statement must expose the page path as column "page_path".
type StatementBuilder struct {
	Layout        store.Options
	Statement     string
	PublishedOnly bool
	Fields        []query.Field
}

var _ query.Builder = (*StatementBuilder)(nil)

// Published implements query.Builder.
func (b *StatementBuilder) Published() bool { return b.PublishedOnly }

// Build implements query.Builder.
func (b *StatementBuilder) Build(webspaceKey string, locales []string) (string, []query.Field, error) {
	if len(locales) == 0 {
		return "", nil, ErrNoLocales
	}
	r := strings.NewReplacer(
		"{webspace}", sqlutil.QuoteLiteral(webspaceKey),
		"{locale}", sqlutil.QuoteLiteral(locales[0]),
		"{content_path}", sqlutil.QuoteLiteral(b.Layout.ContentPath(webspaceKey)),
	)
	return r.Replace(b.Statement), b.Fields, nil
}
