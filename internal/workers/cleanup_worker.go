// Package workers holds long-running background loops.
package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"card-service/internal/repository"
)

// CleanupWorker purges raw analytics events past the retention window.
// Daily summaries are kept; only the event rows age out.
type CleanupWorker struct {
	repo          *repository.AnalyticsRepository
	retentionDays int
	interval      time.Duration
	logger        *logrus.Logger
	stopCh        chan struct{}
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(repo *repository.AnalyticsRepository, retentionDays int, interval time.Duration, logger *logrus.Logger) *CleanupWorker {
	return &CleanupWorker{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start starts the cleanup worker loop
func (w *CleanupWorker) Start(ctx context.Context) {
	w.logger.WithFields(logrus.Fields{
		"interval":       w.interval.String(),
		"retention_days": w.retentionDays,
	}).Info("Starting event cleanup worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Cleanup worker stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info("Cleanup worker stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

// Stop stops the worker
func (w *CleanupWorker) Stop() {
	close(w.stopCh)
}

func (w *CleanupWorker) run(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -w.retentionDays)

	deleted, err := w.repo.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		w.logger.WithError(err).Error("Failed to purge old analytics events")
		return
	}
	if deleted > 0 {
		w.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("Purged old analytics events")
	}
}
