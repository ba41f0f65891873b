// Package maintenance holds the periodic cleanup jobs shared by the worker and the
// operator CLI.
package maintenance

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type ResetTokenCleaner interface {
	CleanupResetTokens(ctx context.Context) (int64, error)
}

type TempCleaner interface {
	CleanupTemp(maxAge time.Duration, now time.Time) (int, error)
}

type AuditPurger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// Jobs runs every cleanup task. A nil dependency skips its task.
type Jobs struct {
	Sessions      SessionCleaner
	ResetTokens   ResetTokenCleaner
	Temp          TempCleaner
	Audit         AuditPurger
	TempMaxAge    time.Duration
	RetentionDays int

	log *zap.Logger
	now func() time.Time
}

func NewJobs(log *zap.Logger) *Jobs {
	return &Jobs{log: log, now: time.Now}
}

// Report counts what a single pass removed.
type Report struct {
	Sessions    int64
	ResetTokens int64
	TempFiles   int
	AuditLogs   int64
	Failed      int
}

// RunOnce runs each job in turn. A failing job is logged and does not stop the others.
func (j *Jobs) RunOnce(ctx context.Context) Report {
	var r Report

	if j.Sessions != nil {
		n, err := j.Sessions.CleanupExpired(ctx)
		if j.check("sessions", err) {
			r.Sessions = n
		} else {
			r.Failed++
		}
	}

	if j.ResetTokens != nil {
		n, err := j.ResetTokens.CleanupResetTokens(ctx)
		if j.check("reset_tokens", err) {
			r.ResetTokens = n
		} else {
			r.Failed++
		}
	}

	if j.Temp != nil && j.TempMaxAge > 0 {
		n, err := j.Temp.CleanupTemp(j.TempMaxAge, j.now())
		if j.check("temp_files", err) {
			r.TempFiles = n
		} else {
			r.Failed++
		}
	}

	if j.Audit != nil && j.RetentionDays > 0 {
		n, err := j.Audit.PurgeOlderThan(ctx, j.RetentionDays)
		if j.check("audit_logs", err) {
			r.AuditLogs = n
		} else {
			r.Failed++
		}
	}

	j.log.Info("maintenance pass finished",
		zap.Int64("sessions", r.Sessions),
		zap.Int64("reset_tokens", r.ResetTokens),
		zap.Int("temp_files", r.TempFiles),
		zap.Int64("audit_logs", r.AuditLogs),
		zap.Int("failed", r.Failed),
	)
	return r
}

func (j *Jobs) check(job string, err error) bool {
	if err != nil {
		j.log.Error("maintenance job failed", zap.String("job", job), zap.Error(err))
		return false
	}
	return true
}

// Run repeats RunOnce every interval until ctx is cancelled. The first pass runs
// immediately.
func (j *Jobs) Run(ctx context.Context, interval time.Duration) {
	j.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}
