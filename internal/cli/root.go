// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/2lenet/sulu/internal/config"
	"github.com/2lenet/sulu/internal/logger"
	"github.com/2lenet/sulu/internal/store"
	"github.com/2lenet/sulu/internal/ui"
)

// app holds the global flags and the configuration resolved for a run.
type app struct {
	configPath string
	dbPath     string
	jsonOutput bool
	verbose    bool

	cfg                *config.Config
	resolvedConfigPath string
}

// NewRootCmd builds the sulu command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "sulu",
		Short: "Query a content node store",
		Long: `sulu keeps webspace page trees in a SQLite node store and runs content
queries against them: select pages, filter them by depth, publication state
and permissions, and print them as a list or a tree.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			logger.SetVerbose(a.verbose)
			return a.loadConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to config file")
	flags.StringVar(&a.dbPath, "db", "", "Path to the content database (overrides config)")
	flags.BoolVar(&a.jsonOutput, "json", false, "Output in JSON format (for script use)")
	flags.BoolVar(&a.verbose, "verbose", false, "Log query phases to stderr")

	rootCmd.AddCommand(
		a.newInitCmd(),
		a.newImportCmd(),
		a.newExportCmd(),
		a.newDeleteCmd(),
		a.newQueryCmd(),
		a.newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, errSilent) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	a.resolvedConfigPath = path

	cfg := &config.Config{}
	if _, err := os.Stat(path); err == nil {
		cfg, err = config.LoadFrom(path)
		if err != nil {
			return a.handleError(cmd.OutOrStdout(), ErrConfigInvalid, err, "Fix the config file or pass --config")
		}
	} else if a.configPath != "" && cmd.Name() != "init" {
		return a.handleError(cmd.OutOrStdout(), ErrConfigInvalid,
			fmt.Errorf("config file not found: %s", path), "Run 'sulu init' to create one")
	}
	a.cfg = cfg
	ui.ConfigureTheme(cfg.UI.Accent)
	return nil
}

// databasePath returns the --db flag or the configured database path.
func (a *app) databasePath() string {
	if a.dbPath != "" {
		return a.dbPath
	}
	return a.cfg.DatabasePath()
}

// openStore opens the content database, which must already exist.
func (a *app) openStore(cmd *cobra.Command) (*store.Store, error) {
	path := a.databasePath()
	if _, err := os.Stat(path); err != nil {
		return nil, a.handleError(cmd.OutOrStdout(), ErrDatabaseNotFound,
			fmt.Errorf("database not found: %s", path), "Run 'sulu init' to create it")
	}
	st, err := store.Open(path, a.cfg.StoreOptions())
	if err != nil {
		return nil, a.handleError(cmd.OutOrStdout(), ErrDatabaseError, err, "")
	}
	logger.Debug("opened database %s", path)
	return st, nil
}

// createStore opens the content database, creating it when missing.
func (a *app) createStore() (*store.Store, string, error) {
	path := a.databasePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, path, fmt.Errorf("failed to create database directory: %w", err)
	}
	st, err := store.Open(path, a.cfg.StoreOptions())
	return st, path, err
}
