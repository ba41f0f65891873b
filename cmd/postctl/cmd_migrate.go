package main

import (
	"fmt"

	"github.com/postertrack/backend/internal/db"
	"github.com/spf13/cobra"
)

var migrateStatusOnly bool

// migrateCmd applies pending SQL migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply every *.up.sql file in the migrations directory that has not been
recorded in schema_migrations, in file name order. Each file runs in its own
transaction.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "Only list pending migrations")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, closeEnv, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer closeEnv()

	pending, err := db.PendingMigrations(ctx, env.pool, env.cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintln(out, "schema up to date")
		return nil
	}
	if migrateStatusOnly {
		for _, v := range pending {
			fmt.Fprintln(out, "pending:", v)
		}
		return nil
	}

	if err := db.RunMigrations(ctx, env.pool, env.cfg.MigrationsDir, env.log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, v := range pending {
		fmt.Fprintln(out, "applied:", v)
	}
	return nil
}
