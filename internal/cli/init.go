package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2lenet/sulu/internal/config"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/ui"
)

type initResult struct {
	Database      string `json:"database"`
	SchemaVersion int    `json:"schema_version"`
	Config        string `json:"config"`
	ConfigCreated bool   `json:"config_created"`
	ConfigUpdated bool   `json:"config_updated"`
	Nodes         int    `json:"nodes"`
	Localizations int    `json:"localizations"`
}

func (a *app) newInitCmd() *cobra.Command {
	var (
		webspace string
		locales  []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the content database and a default config",
		Long: `Creates the SQLite content database (--db or the configured database
path) and writes a commented config file when none exists yet.
Running init on an existing database leaves its content untouched.

--webspace and --locale store the defaults used by 'sulu query' in the
config file.`,
		Example: `  sulu init
  sulu init --webspace io --locale en --locale de`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			created, err := config.CreateDefault(a.resolvedConfigPath)
			if err != nil {
				return a.handleError(out, ErrFileWriteError, err, "")
			}
			updated := webspace != "" || len(locales) > 0
			if updated {
				if err := a.saveDefaults(webspace, locales); err != nil {
					return a.handleError(out, ErrFileWriteError, err, "")
				}
			}

			st, path, err := a.createStore()
			if err != nil {
				return a.handleError(out, ErrDatabaseError, err, "")
			}
			defer st.Close()

			stats, err := st.Stats()
			if err != nil {
				return a.handleError(out, ErrDatabaseError, err, "")
			}
			res := initResult{
				Database:      path,
				SchemaVersion: store.SchemaVersion,
				Config:        a.resolvedConfigPath,
				ConfigCreated: created,
				ConfigUpdated: updated,
				Nodes:         stats.NodeCount,
				Localizations: stats.LocalizationCount,
			}
			if a.jsonOutput {
				outputSuccess(out, res, nil)
				return nil
			}
			fmt.Fprintln(out, ui.Successf("Database ready at %s %s", path, ui.Count(res.Nodes, "page", "pages")))
			if created {
				fmt.Fprintln(out, ui.Successf("Created config %s", res.Config))
			}
			if updated {
				fmt.Fprintln(out, ui.Successf("Saved query defaults to %s", res.Config))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&webspace, "webspace", "w", "", "Default webspace for queries")
	cmd.Flags().StringSliceVarP(&locales, "locale", "l", nil, "Default locales (repeatable); stored for --webspace when given")
	return cmd
}

// saveDefaults records the default webspace and locales in the config file.
// Locales belong to the webspace when one is given.
func (a *app) saveDefaults(webspace string, locales []string) error {
	cfg, err := config.LoadFrom(a.resolvedConfigPath)
	if err != nil {
		return err
	}
	if webspace != "" {
		cfg.DefaultWebspace = webspace
	}
	if len(locales) > 0 {
		if webspace == "" {
			cfg.DefaultLocales = locales
		} else {
			if cfg.Webspaces == nil {
				cfg.Webspaces = make(map[string]config.WebspaceConfig)
			}
			cfg.Webspaces[webspace] = config.WebspaceConfig{Locales: locales}
		}
	}
	if err := config.SaveTo(a.resolvedConfigPath, cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
