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
	"github.com/postertrack/backend/internal/filesecurity"
	apphttp "github.com/postertrack/backend/internal/http"
	"github.com/postertrack/backend/internal/http/handlers"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Files
	files, err := storage.NewLocalStore(cfg.UploadRoot, log)
	if err != nil {
		log.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	mirror, err := newMirror(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to object storage", zap.Error(err))
	}
	scanner := filesecurity.NewScanner(cfg.MaxUploadBytes, cfg.AllowedMIMETypes, log)

	// Repositories
	companyRepo := repositories.NewCompanyRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	assignmentRepo := repositories.NewAssignmentRepo(pool)
	imageRepo := repositories.NewImageRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	sessionRepo := repositories.NewSessionRepo(pool)
	resetRepo := repositories.NewPasswordResetRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	auditService := services.NewAuditService(auditRepo, log)
	sessionService := services.NewSessionService(sessionRepo, userRepo, services.NewRedisSessionCache(rdb), cfg, log)
	authService := services.NewAuthService(userRepo, resetRepo, sessionService, auditService, publisher, cfg, log)
	companyService := services.NewCompanyService(companyRepo, auditService, log)
	userService := services.NewUserService(userRepo, companyRepo, assignmentRepo, sessionService, auditService, cfg, log)
	campaignService := services.NewCampaignService(campaignRepo, assignmentRepo, companyRepo, userRepo, imageRepo, files, mirror, auditService, publisher, log)
	imageService := services.NewImageService(imageRepo, campaignRepo, assignmentRepo, scanner, files, mirror, auditService, publisher, cfg, log)

	// Handlers
	h := apphttp.Handlers{
		Auth:      handlers.NewAuthHandler(authService, sessionService, log),
		Companies: handlers.NewCompanyHandler(companyService, log),
		Users:     handlers.NewUserHandler(userService, log),
		Campaigns: handlers.NewCampaignHandler(campaignService, log),
		Images:    handlers.NewImageHandler(imageService, log),
		Audit:     handlers.NewAuditHandler(auditService, log),
		WSHub:     handlers.NewWSHub(subscriber, sessionService, log),
	}

	if err := h.WSHub.Start(ctx); err != nil {
		log.Fatal("failed to start websocket hub", zap.Error(err))
	}

	app := apphttp.NewApp(cfg, log)
	apphttp.SetupRouter(app, cfg, log, rdb, sessionService, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("upload_root", files.Root()))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newMirror(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Mirror, error) {
	if cfg.StorageMirror != "minio" {
		return storage.NopMirror{}, nil
	}
	return storage.NewMinioMirror(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, log)
}
