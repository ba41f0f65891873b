package services

import (
	"context"

	"github.com/postertrack/backend/internal/storage"
	"go.uber.org/zap"
)

// removeStored deletes image files locally and from the mirror. Failures are logged;
// the database row is already gone at this point.
func removeStored(ctx context.Context, files FileStore, mirror storage.Mirror, log *zap.Logger, paths ...string) {
	if len(paths) == 0 {
		return
	}
	if err := files.Remove(paths...); err != nil {
		log.Warn("failed to remove stored files", zap.Strings("paths", paths), zap.Error(err))
	}
	if err := mirror.Remove(ctx, paths...); err != nil {
		log.Warn("failed to remove mirrored files", zap.Strings("paths", paths), zap.Error(err))
	}
}
