// Package testutils starts throwaway infrastructure for integration tests.
package testutils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/db"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// SetupPostgres returns a migrated pool and a cleanup func. TEST_POSTGRES_DSN points it at an
// existing database; otherwise a postgres container is started.
func SetupPostgres(ctx context.Context, migrationsDir string) (*pgxpool.Pool, func(), error) {
	log := zap.NewNop()

	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		pool, err := db.NewPostgresPool(ctx, dsn, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx, pool, migrationsDir, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}

	req := testcontainers.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_USER":     "test",
			"POSTGRES_DB":       "poster_campaigns",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, err
	}
	terminate := func() { _ = pg.Terminate(context.Background()) }

	host, err := pg.Host(ctx)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		return nil, nil, err
	}
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/poster_campaigns?sslmode=disable", host, port.Port())

	var pool *pgxpool.Pool
	for i := 0; i < 10; i++ {
		pool, err = db.NewPostgresPool(ctx, dsn, log)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		terminate()
		return nil, nil, err
	}

	if err := db.RunMigrations(ctx, pool, migrationsDir, log); err != nil {
		pool.Close()
		terminate()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}
