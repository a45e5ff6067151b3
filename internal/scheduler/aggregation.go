// Package scheduler runs the periodic daily-rollup job.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"card-service/internal/services"
)

// AggregationScheduler rolls up the previous UTC day on a cron schedule.
// Runs are re-entrant: the aggregator's upsert-overwrite semantics make
// concurrent or repeated invocations for the same date safe.
type AggregationScheduler struct {
	aggregator *services.AggregationService
	schedule   string
	logger     *logrus.Logger
	cron       *cron.Cron
	mu         sync.Mutex
	running    bool
}

// NewAggregationScheduler creates a new aggregation scheduler
func NewAggregationScheduler(aggregator *services.AggregationService, schedule string, logger *logrus.Logger) *AggregationScheduler {
	return &AggregationScheduler{
		aggregator: aggregator,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start starts the scheduler
func (s *AggregationScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	schedule := s.schedule
	if schedule == "" {
		schedule = "0 15 0 * * *" // 00:15 UTC, after the day boundary
	}

	// Convert 5-field cron to 6-field (add seconds prefix)
	fields := strings.Fields(schedule)
	if len(fields) == 5 {
		schedule = "0 " + schedule
	}

	if _, err := s.cron.AddFunc(schedule, s.runDaily); err != nil {
		s.logger.WithError(err).Error("Failed to schedule aggregation job")
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.WithField("schedule", schedule).Info("Aggregation scheduler started")
	return nil
}

// Stop stops the scheduler, waiting for a running job to finish
func (s *AggregationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Aggregation scheduler stopped")
}

func (s *AggregationScheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	result, err := s.aggregator.AggregateDay(ctx, yesterday)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled aggregation run failed")
		return
	}

	if result.CardsFailed > 0 {
		s.logger.WithFields(logrus.Fields{
			"cards_failed": result.CardsFailed,
			"date":         result.Date.Format("2006-01-02"),
		}).Warn("Scheduled aggregation completed with per-card failures")
	}
}
