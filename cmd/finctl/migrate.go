package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the SQLite schema up to the latest version.

With --status the current schema version is printed and nothing is applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			return runMigrate(cmd, a, status)
		},
	}
	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, a *app, statusOnly bool) error {
	dbPath := a.cfg.SQLiteDBPath
	out := cmd.OutOrStdout()

	if !statusOnly {
		a.logger.Info("Running database migrations", "path", dbPath)
		if err := storage.RunMigrations(dbPath); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	v, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "database: %s\nschema version: %d\n", dbPath, v)
	if dirty {
		fmt.Fprintln(out, "warning: schema is dirty, a previous migration failed part way")
	}
	return nil
}
