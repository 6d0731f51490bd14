package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2lenet/sulu/internal/snapshot"
	"github.com/2lenet/sulu/internal/ui"
)

type exportResult struct {
	File        string `json:"file"`
	Compression string `json:"compression"`
	Nodes       int    `json:"nodes"`
}

func (a *app) newExportCmd() *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a snapshot of every page",
		Long: `Writes all pages as JSON Lines. Files ending in .zst are Zstandard
compressed; --compress appends the extension when it is missing. The file
is replaced atomically.`,
		Example: `  sulu export backup.jsonl
  sulu export backup.jsonl.zst
  sulu export backup.jsonl --compress`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return a.handleErrorMsg(out, ErrMissingArgument, "export requires a file", "Usage: sulu export <file>")
			}
			file := args[0]
			if compress {
				file = snapshot.FileName(file, snapshot.NewZstdCompressor())
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			count, err := snapshot.ExportFile(file, st)
			if err != nil {
				return a.handleError(out, ErrFileWriteError, err, "")
			}

			res := exportResult{File: file, Compression: snapshot.CompressorFor(file).Name(), Nodes: count}
			if a.jsonOutput {
				outputSuccess(out, res, &Meta{Count: count})
				return nil
			}
			fmt.Fprintln(out, ui.Successf("Exported %d pages to %s", count, file))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&compress, "compress", "z", false, "Zstandard compress, adding .zst to the file name if needed")
	return cmd
}
