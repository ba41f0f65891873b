package db

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT now()
		)
	`)
	return err
}

// listUpFiles returns *.up.sql file names in lexical order.
func listUpFiles(migrationsDir string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, err
	}

	var upFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)
	return upFiles, nil
}

// PendingMigrations lists versions present on disk but not yet applied.
func PendingMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) ([]string, error) {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, err
	}
	upFiles, err := listUpFiles(migrationsDir)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, f := range upFiles {
		version := strings.TrimSuffix(f, ".up.sql")
		var exists bool
		if err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)", version).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			pending = append(pending, version)
		}
	}
	return pending, nil
}

func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string, log *zap.Logger) error {
	pending, err := PendingMigrations(ctx, pool, migrationsDir)
	if err != nil {
		return err
	}

	for _, version := range pending {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, version+".up.sql"))
		if err != nil {
			return err
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info("migration applied", zap.String("version", version))
	}

	if len(pending) == 0 {
		log.Debug("schema up to date")
	}
	return nil
}
