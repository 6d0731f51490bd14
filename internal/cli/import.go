package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2lenet/sulu/internal/fixtures"
	"github.com/2lenet/sulu/internal/snapshot"
	"github.com/2lenet/sulu/internal/ui"
)

type importResult struct {
	File     string `json:"file"`
	Format   string `json:"format"`
	Nodes    int    `json:"nodes"`
	Replaced bool   `json:"replaced"`
}

// importFormat detects the import format from a file name.
func importFormat(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return "fixtures"
	case strings.HasSuffix(lower, ".jsonl"), strings.HasSuffix(lower, ".jsonl.zst"):
		return "snapshot"
	}
	return ""
}

func (a *app) newImportCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import pages from a YAML fixture or a snapshot",
		Long: `Imports pages into the content database.

Formats are detected by extension:
  .yaml, .yml         page fixtures (nested pages per webspace)
  .jsonl, .jsonl.zst  snapshots written by 'sulu export'

Existing pages are updated in place. With --replace, the webspaces named
in the file are cleared first.`,
		Example: `  sulu import pages.yaml
  sulu import backup.jsonl.zst --replace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return a.handleErrorMsg(out, ErrMissingArgument, "import requires a file", "Usage: sulu import <file>")
			}
			file := args[0]
			format := importFormat(file)
			if format == "" {
				return a.handleErrorMsg(out, ErrUnsupportedFormat,
					fmt.Sprintf("unsupported import file %s", filepath.Base(file)),
					"Use a .yaml/.yml fixture or a .jsonl/.jsonl.zst snapshot")
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var count int
			switch format {
			case "fixtures":
				f, err := fixtures.LoadFile(file)
				if err != nil {
					return a.handleError(out, ErrFileReadError, err, "")
				}
				count, err = f.Apply(st, replace)
				if err != nil {
					return a.handleError(out, ErrInvalidInput, err, "")
				}
			case "snapshot":
				count, err = snapshot.ImportFile(file, st, replace)
				if err != nil {
					return a.handleError(out, ErrFileReadError, err, "")
				}
			}

			res := importResult{File: file, Format: format, Nodes: count, Replaced: replace}
			if a.jsonOutput {
				outputSuccess(out, res, &Meta{Count: count})
				return nil
			}
			fmt.Fprintln(out, ui.Successf("Imported %d pages from %s", count, file))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear the file's webspaces before importing")
	return cmd
}
