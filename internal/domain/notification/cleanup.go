package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"salonbook/internal/pkg/logger"
)

// CleanupService prunes old notifications from background jobs.
type CleanupService struct {
	repo *Repository
	log  *zap.Logger
}

func NewCleanupService(repo *Repository, log *zap.Logger) *CleanupService {
	return &CleanupService{repo: repo, log: logger.OrNop(log).Named("notification_cleanup")}
}

// CleanupRead deletes read notifications older than keep.
func (c *CleanupService) CleanupRead(ctx context.Context, keep time.Duration) (int64, error) {
	startTime := time.Now()

	deleted, err := c.repo.DeleteReadBefore(ctx, startTime.Add(-keep))
	if err != nil {
		c.log.Error("notification cleanup failed", zap.Error(err))
		return 0, err
	}

	c.log.Info("notification cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Duration("took", time.Since(startTime)),
	)
	return deleted, nil
}
