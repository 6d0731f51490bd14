package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2lenet/sulu/internal/paths"
	"github.com/2lenet/sulu/internal/slugs"
	"github.com/2lenet/sulu/internal/ui"
)

type deleteResult struct {
	Path    string `json:"path"`
	Removed int    `json:"removed"`
}

func (a *app) newDeleteCmd() *cobra.Command {
	var webspace string
	cmd := &cobra.Command{
		Use:   "delete <page>",
		Short: "Delete a page and its subtree",
		Long: `Deletes a page, given relative to the webspace content root, together
with every page below it.`,
		Example: `  sulu delete -w io products/hats
  sulu delete -w io "Products/Running Shoes"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return a.handleErrorMsg(out, ErrMissingArgument, "delete requires a page", "Usage: sulu delete <page>")
			}
			rel := slugs.RelativePath(args[0])
			if rel == "" {
				return a.handleErrorMsg(out, ErrInvalidInput, "refusing to delete the content root", "Use 'sulu import --replace' to reset a webspace")
			}
			ws, err := a.cfg.Webspace(webspace)
			if err != nil {
				return a.handleError(out, queryErrorCode(err), err, "Pass --webspace or set default_webspace in config.toml")
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			p := paths.Join(st.ContentPath(ws), rel)
			removed, err := st.DeleteNode(p)
			if err != nil {
				return a.handleError(out, ErrDatabaseError, err, "")
			}
			if removed == 0 {
				return a.handleErrorMsg(out, ErrPageNotFound, fmt.Sprintf("page not found: %s", p), "")
			}

			if a.jsonOutput {
				outputSuccess(out, deleteResult{Path: p, Removed: removed}, &Meta{Count: removed})
				return nil
			}
			fmt.Fprintln(out, ui.Successf("Deleted %s %s", p, ui.Count(removed, "page", "pages")))
			return nil
		},
	}
	cmd.Flags().StringVarP(&webspace, "webspace", "w", "", "Webspace of the page (default: default_webspace)")
	return cmd
}
