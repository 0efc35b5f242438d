package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"community-interaction-api/internal/events"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/repository"
)

// OutboxRelayJob publishes committed outbox rows to the broker
type OutboxRelayJob struct {
	outboxRepo  repository.OutboxRepository
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

// NewOutboxRelayJob creates a new OutboxRelayJob instance
func NewOutboxRelayJob(
	outboxRepo repository.OutboxRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	batchSize int,
	maxAttempts int,
) *OutboxRelayJob {
	return &OutboxRelayJob{
		outboxRepo:  outboxRepo,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one relay pass
func (j *OutboxRelayJob) Run() {
	if _, err := j.RelayOnce(context.Background()); err != nil {
		j.logger.Error("Outbox relay failed", zap.Error(err))
	}
}

// RelayOnce publishes up to one batch in id order and returns how many were published.
// Delivery is at-least-once: a row is marked only after the broker accepted it.
func (j *OutboxRelayJob) RelayOnce(ctx context.Context) (int, error) {
	pending, err := j.outboxRepo.FindPending(ctx, j.batchSize, j.maxAttempts)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		j.refreshPending(ctx)
		return 0, nil
	}

	var published []uint
	failCount := 0

	for _, event := range pending {
		err := j.publisher.Publish(ctx, event)
		j.metrics.RecordOutboxPublish(err)
		if err != nil {
			j.logger.Warn("Failed to publish outbox event",
				zap.Uint("outbox_id", event.ID),
				zap.String("type", event.Type),
				zap.Int("attempts", event.Attempts+1),
				zap.Error(err),
			)
			if incErr := j.outboxRepo.IncrementAttempts(ctx, event.ID); incErr != nil {
				j.logger.Error("Failed to record publish attempt", zap.Uint("outbox_id", event.ID), zap.Error(incErr))
			}
			failCount++
			continue
		}
		published = append(published, event.ID)
	}

	if len(published) > 0 {
		if err := j.outboxRepo.MarkPublished(ctx, published, j.now()); err != nil {
			return 0, err
		}
	}

	j.refreshPending(ctx)

	j.logger.Info("Outbox relay completed",
		zap.Int("total", len(pending)),
		zap.Int("published", len(published)),
		zap.Int("failed", failCount),
	)
	return len(published), nil
}

func (j *OutboxRelayJob) refreshPending(ctx context.Context) {
	count, err := j.outboxRepo.CountPending(ctx)
	if err != nil {
		j.logger.Debug("Failed to count pending outbox events", zap.Error(err))
		return
	}
	j.metrics.SetOutboxPending(count)
}
