// Package commands implements the ledgerctl command tree.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/smart-ledger/internal/analytics/engine"
	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/database"
	"github.com/dvloznov/smart-ledger/internal/infra/sqlite"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// app is the state shared by subcommands, built before each run.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	db     *sql.DB
	repos  sqlite.Repositories
	engine *engine.Engine

	userID string
	json   bool
}

type rootOptions struct {
	dbPath string
	userID string
	json   bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect the ledger and run analytics from the terminal",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), opts)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides database.path)")
	flags.StringVarP(&opts.userID, "user", "u", os.Getenv("SMARTLEDGER_USER"), "user id to act as (or set SMARTLEDGER_USER)")
	flags.BoolVar(&opts.json, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newSuggestCommand(a),
		newForecastCommand(a),
		newTrendCommand(a),
		newAnomaliesCommand(a),
		newMissingCommand(a),
		newDashboardCommand(a),
		newExportCommand(a),
		newWarehouseSyncCommand(a),
	)
	return rootCmd
}

func (a *app) open(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	a.cfg = cfg
	a.userID = opts.userID
	a.json = opts.json
	a.log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	a.db, err = database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		return err
	}
	a.repos = sqlite.NewRepositories(a.db)

	a.engine, err = engine.New(ctx, cfg, a.repos, a.log)
	if err != nil {
		_ = a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

func (a *app) close() error {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close analytics engine")
		}
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// requireUser fails commands that act on one user's data when no user is set.
func (a *app) requireUser() error {
	if a.userID == "" {
		return fmt.Errorf("no user: pass --user or set SMARTLEDGER_USER")
	}
	return nil
}
