package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/mapper"
	"github.com/2lenet/sulu/internal/model"
	"github.com/2lenet/sulu/internal/query"
	"github.com/2lenet/sulu/internal/querybuilder"
	"github.com/2lenet/sulu/internal/security"
	"github.com/2lenet/sulu/internal/slugs"
	"github.com/2lenet/sulu/internal/stopwatch"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/tree"
	"github.com/2lenet/sulu/internal/ui"
)

// queryFlags are the options of 'sulu query'.
type queryFlags struct {
	webspace   string
	locales    []string
	depth      int
	limit      int
	offset     int
	tree       bool
	moveUp     bool
	permission string
	user       string
	roles      []string
	profile    bool

	dataSource        string
	includeSubFolders bool
	templates         []string
	excluded          []string
	sortBy            string
	desc              bool
	published         bool
	statement         string

	fields   []string
	columns  []string
	required []string
}

func (f *queryFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.webspace, "webspace", "w", "", "Webspace to query (default: default_webspace)")
	fs.StringSliceVarP(&f.locales, "locale", "l", nil, "Locale to map (repeatable; default from config)")
	fs.IntVar(&f.depth, "depth", query.DepthUnlimited, "Maximum depth below the content root (0 or negative: unlimited)")
	fs.IntVar(&f.limit, "limit", 0, "Maximum number of rows")
	fs.IntVar(&f.offset, "offset", 0, "Number of rows to skip")
	fs.BoolVar(&f.tree, "tree", false, "Nest results into a tree")
	fs.BoolVar(&f.moveUp, "move-up", false, "Promote items whose parent is missing to tree roots")
	fs.StringVar(&f.permission, "permission", "", "Permission required on each page (e.g. view)")
	fs.StringVar(&f.user, "user", "", "Query as this user")
	fs.StringSliceVar(&f.roles, "role", nil, "Role of --user (repeatable)")
	fs.BoolVar(&f.profile, "profile", false, "Report the time spent in each query phase")

	fs.StringVar(&f.dataSource, "data-source", "", "Page to select from, relative to the content root (titles are slugified)")
	fs.BoolVar(&f.includeSubFolders, "include-subfolders", false, "Select all descendants, not only children")
	fs.StringSliceVar(&f.templates, "template", nil, "Only pages using this template (repeatable)")
	fs.StringSliceVar(&f.excluded, "exclude", nil, "Exclude this page and its subtree (repeatable)")
	fs.StringVar(&f.sortBy, "sort", "", "Sort by title, path, changed or created (default: tree order)")
	fs.BoolVar(&f.desc, "desc", false, "Sort descending")
	fs.BoolVar(&f.published, "published", false, "Only published pages")
	fs.StringVar(&f.statement, "statement", "", "Raw SQL statement selecting page_path ({webspace}, {locale}, {content_path} are substituted)")

	fs.StringArrayVar(&f.fields, "field", nil, "Copy a page property into the item: NAME or NAME=PROPERTY (repeatable)")
	fs.StringArrayVar(&f.columns, "column", nil, "Copy a result column into the item: NAME or NAME=COLUMN (repeatable)")
	fs.StringSliceVar(&f.required, "require", nil, "Fail when this field is missing (repeatable)")
}

// parseFields turns the --field and --column flags into field descriptors.
func (f *queryFlags) parseFields() ([]query.Field, error) {
	var out []query.Field
	seen := make(map[string]bool)
	add := func(arg string, column bool) error {
		name, source, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		source = strings.TrimSpace(source)
		if name == "" || (ok && source == "") {
			return fmt.Errorf("invalid field %q: expected NAME or NAME=SOURCE", arg)
		}
		if seen[name] {
			return fmt.Errorf("duplicate field %q", name)
		}
		seen[name] = true
		if source == "" {
			source = name
		}
		field := query.Field{Name: name, Required: slices.Contains(f.required, name)}
		if column {
			field.Column = source
		} else {
			field.Property = source
		}
		out = append(out, field)
		return nil
	}
	for _, arg := range f.fields {
		if err := add(arg, false); err != nil {
			return nil, err
		}
	}
	for _, arg := range f.columns {
		if err := add(arg, true); err != nil {
			return nil, err
		}
	}
	for _, name := range f.required {
		if !seen[name] {
			return nil, fmt.Errorf("--require %s names no --field or --column", name)
		}
	}
	return out, nil
}

// builder returns the statement builder selected by the flags.
func (f *queryFlags) builder(layout store.Options, fields []query.Field) query.Builder {
	if f.statement != "" {
		return &querybuilder.StatementBuilder{
			Layout:        layout,
			Statement:     f.statement,
			PublishedOnly: f.published,
			Fields:        fields,
		}
	}
	excluded := make([]string, 0, len(f.excluded))
	for _, p := range f.excluded {
		excluded = append(excluded, slugs.RelativePath(p))
	}
	return &querybuilder.ContentBuilder{
		Layout:            layout,
		DataSource:        slugs.RelativePath(f.dataSource),
		IncludeSubFolders: f.includeSubFolders,
		Templates:         f.templates,
		Excluded:          excluded,
		SortBy:            f.sortBy,
		SortDesc:          f.desc,
		PublishedOnly:     f.published,
		Fields:            fields,
	}
}

// tokenStorage returns the token storage for --user, or nil.
func (f *queryFlags) tokenStorage() security.TokenStorage {
	if f.user == "" {
		return nil
	}
	return security.NewMemoryTokenStorage(security.PrincipalToken{
		Value: &security.User{Username: f.user, RoleNames: f.roles},
	})
}

func (f *queryFlags) options() query.Options {
	return query.Options{
		Flat:       !f.tree,
		Depth:      f.depth,
		Limit:      f.limit,
		Offset:     f.offset,
		MoveUp:     f.moveUp,
		Permission: f.permission,
	}
}

type queryResult struct {
	Webspace string                   `json:"webspace"`
	Locales  []string                 `json:"locales"`
	Items    []model.Item             `json:"items"`
	Tree     []*tree.Node[model.Item] `json:"tree,omitempty"`
	Session  store.SessionStats       `json:"session"`
	Timings  []stopwatch.Event        `json:"timings,omitempty"`
}

func (a *app) newQueryCmd() *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a content query",
		Long: `Selects pages of a webspace and maps them to items in each requested
locale.

Pages are selected below --data-source (children only unless
--include-subfolders), filtered by template, exclusions and publication
state, and sorted. --statement replaces the selection with raw SQL.
Items deeper than --depth, unpublished in a locale with --published, or not
granted --permission to the --user are left out.

With --tree, items are nested under their parents. Items whose parent is
not part of the result are dropped unless --move-up is given.`,
		Example: `  sulu query -w io -l en -l de --include-subfolders --depth 2
  sulu query -w io --data-source products --sort title --field summary
  sulu query -w io --include-subfolders --tree --move-up --permission view --user jane --role editor
  sulu query -w io --statement "SELECT path AS page_path FROM nodes WHERE webspace = {webspace}"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, f)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, f *queryFlags) error {
	out := cmd.OutOrStdout()

	webspace, err := a.cfg.Webspace(f.webspace)
	if err != nil {
		return a.handleError(out, queryErrorCode(err), err, "Pass --webspace or set default_webspace in config.toml")
	}
	locales := a.cfg.Locales(webspace, f.locales)
	fields, err := f.parseFields()
	if err != nil {
		return a.handleError(out, ErrInvalidInput, err, "")
	}

	st, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.NewSession()
	if err != nil {
		return a.handleError(out, ErrDatabaseError, err, "")
	}

	opts := []query.Option{query.WithTokenStorage(f.tokenStorage())}
	var sw *stopwatch.Stopwatch
	if f.profile {
		sw = stopwatch.New()
		opts = append(opts, query.WithStopwatch(sw))
	}
	executor := query.NewExecutor(sess, mapper.New(sess, nil), opts...)

	start := time.Now()
	res, err := executor.Execute(webspace, locales, f.builder(st.Options(), fields), f.options())
	elapsed := time.Since(start)
	if err != nil {
		return a.handleError(out, queryErrorCode(err), err, "")
	}
	if f.tree && !f.moveUp {
		if dropped := len(res.Items) - tree.Count(res.Tree); dropped > 0 {
			logger.Warn("%d items left out of the tree because their parent is not in the result (see --move-up)", dropped)
		}
	}

	if a.jsonOutput {
		data := queryResult{
			Webspace: webspace,
			Locales:  locales,
			Items:    res.Items,
			Tree:     res.Tree,
			Session:  sess.Stats(),
		}
		if sw != nil {
			data.Timings = sw.Events()
		}
		if data.Items == nil {
			data.Items = []model.Item{}
		}
		outputSuccess(out, data, &Meta{Count: len(res.Items), QueryTimeMs: elapsed.Milliseconds()})
		return nil
	}

	if f.tree {
		fmt.Fprint(out, ui.RenderTree(res.Tree))
	} else {
		fmt.Fprint(out, ui.RenderItems(res.Items, ui.NewDisplayContext()))
	}
	fmt.Fprintln(out, ui.Hint(fmt.Sprintf("%s %s in %s",
		ui.Count(len(res.Items), "item", "items"), webspace+"@"+strings.Join(locales, ","), elapsed.Round(time.Microsecond))))
	if sw != nil {
		fmt.Fprint(out, "\n"+ui.RenderSpans(sw.Events()))
	}
	return nil
}
