package main

import (
	"fmt"

	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/maintenance"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"github.com/postertrack/backend/internal/storage"
	"github.com/spf13/cobra"
)

// cleanupCmd runs the worker maintenance jobs once
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run the maintenance jobs once",
	Long: `Delete expired sessions and reset tokens, stale temp uploads and, when
AUDIT_RETENTION_DAYS is set, old audit entries. Same jobs the worker runs on a timer.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, closeEnv, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer closeEnv()

	files, err := storage.NewLocalStore(env.cfg.UploadRoot, env.log)
	if err != nil {
		return fmt.Errorf("open upload directory: %w", err)
	}

	userRepo := repositories.NewUserRepo(env.pool)
	audit := services.NewAuditService(repositories.NewAuditRepo(env.pool), env.log)
	sessions := services.NewSessionService(repositories.NewSessionRepo(env.pool), userRepo, services.NopSessionCache{}, env.cfg, env.log)
	auth := services.NewAuthService(userRepo, repositories.NewPasswordResetRepo(env.pool), sessions, audit, events.NopPublisher{}, env.cfg, env.log)

	jobs := maintenance.NewJobs(env.log)
	jobs.Sessions = sessions
	jobs.ResetTokens = auth
	jobs.Temp = files
	jobs.TempMaxAge = env.cfg.TempFileMaxAge
	jobs.Audit = audit
	jobs.RetentionDays = env.cfg.AuditRetentionDays

	r := jobs.RunOnce(ctx)
	fmt.Fprintf(cmd.OutOrStdout(),
		"sessions: %d\nreset tokens: %d\ntemp files: %d\naudit entries: %d\n",
		r.Sessions, r.ResetTokens, r.TempFiles, r.AuditLogs)
	if r.Failed > 0 {
		return fmt.Errorf("%d job(s) failed", r.Failed)
	}
	return nil
}
