// Command postctl is the operator CLI: schema migrations, seeding the first employee
// and one-off maintenance runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrationsDir string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:           "postctl",
	Short:         "Operate the poster campaign backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runtimeEnv is what every subcommand needs: configuration, a logger and a pool.
type runtimeEnv struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func openEnv(ctx context.Context) (*runtimeEnv, func(), error) {
	cfg := config.Load()
	if migrationsDir != "" {
		cfg.MigrationsDir = migrationsDir
	}

	log := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, fmt.Errorf("init logger: %w", err)
		}
		log = l
	}
	if err := cfg.Validate(log); err != nil {
		return nil, nil, err
	}

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	closeFn := func() {
		pool.Close()
		_ = log.Sync()
	}
	return &runtimeEnv{cfg: cfg, log: log, pool: pool}, closeFn, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "", "Migrations directory (default: MIGRATIONS_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createEmployeeCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
