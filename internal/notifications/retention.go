package notifications

import (
	"context"
	"time"

	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/pkg/logger"
)

// RetentionJob periodically purges audit log entries past the configured
// retention horizon. Purging through this job is the only delete path for
// audit rows.
type RetentionJob struct {
	auditRepo *repository.AuditRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

// NewRetentionJob creates a retention job that runs once per interval
func NewRetentionJob(auditRepo *repository.AuditRepository, retention time.Duration, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		auditRepo: auditRepo,
		retention: retention,
		interval:  24 * time.Hour,
		logger:    log,
	}
}

// Start runs the purge loop until the context is cancelled. One purge runs
// immediately on startup so a long-stopped worker catches up.
func (j *RetentionJob) Start(ctx context.Context) {
	go func() {
		j.purge(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.Info().Msg("retention job stopped")
				return
			case <-ticker.C:
				j.purge(ctx)
			}
		}
	}()
}

func (j *RetentionJob) purge(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	purged, err := j.auditRepo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("audit retention purge failed")
		return
	}
	if purged > 0 {
		j.logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("audit entries purged")
	}
}
