package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/repository"
)

// BusinessMetricsCollector refreshes engine gauges; Collect is scheduled by the job runner
type BusinessMetricsCollector struct {
	db      *gorm.DB
	metrics *Metrics
	logger  *zap.Logger
}

// NewBusinessMetricsCollector creates a new collector
func NewBusinessMetricsCollector(db *gorm.DB, metrics *Metrics, logger *zap.Logger) *BusinessMetricsCollector {
	return &BusinessMetricsCollector{
		db:      db,
		metrics: metrics,
		logger:  logger,
	}
}

// Run satisfies cron.Job
func (c *BusinessMetricsCollector) Run() {
	c.Collect(context.Background())
}

// Collect gathers gauges once
func (c *BusinessMetricsCollector) Collect(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in business metrics collection", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	repos := repository.New(c.db)

	if waiting, err := repos.Participants.CountWaitingTotal(ctx); err != nil {
		c.logger.Error("Failed to count waiting participants", zap.Error(err))
	} else {
		c.metrics.SetWaitingParticipants(waiting)
	}

	if pending, err := repos.Outbox.CountPending(ctx); err != nil {
		c.logger.Error("Failed to count pending outbox events", zap.Error(err))
	} else {
		c.metrics.SetOutboxPending(pending)
	}

	if comments, err := repos.Comments.Count(ctx); err != nil {
		c.logger.Error("Failed to count comments", zap.Error(err))
	} else {
		c.metrics.SetCommentsTotal(comments)
	}
}
