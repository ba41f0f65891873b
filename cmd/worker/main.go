package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/db"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/maintenance"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"github.com/postertrack/backend/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	files, err := storage.NewLocalStore(cfg.UploadRoot, log)
	if err != nil {
		log.Fatal("failed to open upload directory", zap.Error(err))
	}

	userRepo := repositories.NewUserRepo(pool)
	auditService := services.NewAuditService(repositories.NewAuditRepo(pool), log)
	sessionService := services.NewSessionService(repositories.NewSessionRepo(pool), userRepo, services.NopSessionCache{}, cfg, log)
	authService := services.NewAuthService(userRepo, repositories.NewPasswordResetRepo(pool), sessionService, auditService, events.NopPublisher{}, cfg, log)

	jobs := maintenance.NewJobs(log)
	jobs.Sessions = sessionService
	jobs.ResetTokens = authService
	jobs.Temp = files
	jobs.TempMaxAge = cfg.TempFileMaxAge
	jobs.Audit = auditService
	jobs.RetentionDays = cfg.AuditRetentionDays

	log.Info("worker started", zap.Duration("interval", cfg.WorkerInterval))
	jobs.Run(ctx, cfg.WorkerInterval)
	log.Info("shutting down worker")
}
