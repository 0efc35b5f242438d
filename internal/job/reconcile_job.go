package job

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/repository"
)

const reconcilePageSize = 500

// ReconcileReport counts the rows whose cached counters disagreed with the source rows
type ReconcileReport struct {
	mu      sync.Mutex
	Tallies map[domain.TargetKind]int `json:"tallies"`
	Roster  int                       `json:"roster"`
	DryRun  bool                      `json:"dryRun"`
}

func (r *ReconcileReport) addTally(kind domain.TargetKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tallies[kind]++
}

// Total returns the number of drifted rows across all counters
func (r *ReconcileReport) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := r.Roster
	for _, n := range r.Tallies {
		total += n
	}
	return total
}

// ReconcileJob recomputes vote tallies and confirmed counts and repairs drift
type ReconcileJob struct {
	repos   *repository.Repositories
	tx      database.Transactor
	cache   cache.TallyCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	dryRun  bool
}

// NewReconcileJob creates a new ReconcileJob instance. A dry run reports drift without writing.
// Repaired targets are invalidated in tallyCache, which may be nil.
func NewReconcileJob(db *gorm.DB, tx database.Transactor, tallyCache cache.TallyCache, m *metrics.Metrics, logger *zap.Logger, dryRun bool) *ReconcileJob {
	if tallyCache == nil {
		tallyCache = cache.NewNoopTallyCache()
	}
	return &ReconcileJob{
		repos:   repository.New(db),
		tx:      tx,
		cache:   tallyCache,
		metrics: m,
		logger:  logger,
		dryRun:  dryRun,
	}
}

// Run executes a full reconciliation
func (j *ReconcileJob) Run() {
	report, err := j.ReconcileAll(context.Background())
	if err != nil {
		j.logger.Error("Reconciliation failed", zap.Error(err))
		return
	}
	j.logger.Info("Reconciliation completed", zap.Int("drifted", report.Total()), zap.Bool("dry_run", report.DryRun))
}

func (j *ReconcileJob) newReport() *ReconcileReport {
	return &ReconcileReport{Tallies: map[domain.TargetKind]int{}, DryRun: j.dryRun}
}

// ReconcileAll checks every tally kind and every roster concurrently
func (j *ReconcileJob) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := j.newReport()

	p := pool.New().WithContext(ctx)
	for _, kind := range domain.TargetKinds() {
		kind := kind
		p.Go(func(ctx context.Context) error {
			return j.reconcileKind(ctx, kind, report)
		})
	}
	p.Go(func(ctx context.Context) error {
		return j.reconcileRosters(ctx, report)
	})
	if err := p.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

// ReconcileTallies checks only the vote counters
func (j *ReconcileJob) ReconcileTallies(ctx context.Context) (*ReconcileReport, error) {
	report := j.newReport()
	for _, kind := range domain.TargetKinds() {
		if err := j.reconcileKind(ctx, kind, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// ReconcileRosters checks only the confirmed counts
func (j *ReconcileJob) ReconcileRosters(ctx context.Context) (*ReconcileReport, error) {
	report := j.newReport()
	err := j.reconcileRosters(ctx, report)
	return report, err
}

func (j *ReconcileJob) reconcileKind(ctx context.Context, kind domain.TargetKind, report *ReconcileReport) error {
	counts, err := j.repos.Votes.CountByKind(ctx, kind)
	if err != nil {
		return fmt.Errorf("count %s votes: %w", kind, err)
	}

	repaired := 0
	var afterID uint
	for {
		rows, err := j.repos.Tallies.List(ctx, kind, afterID, reconcilePageSize)
		if err != nil {
			return fmt.Errorf("list %s tallies: %w", kind, err)
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			afterID = row.ID
			want := counts[row.ID]
			if want.Up == row.Up && want.Down == row.Down {
				continue
			}
			target := domain.TargetRef{Kind: kind, ID: row.ID}
			fixed, err := j.repairTally(ctx, target)
			if err != nil {
				return err
			}
			if fixed {
				report.addTally(kind)
				repaired++
			}
		}
	}

	if repaired > 0 && !j.dryRun {
		j.metrics.AddDriftRepaired(string(kind), repaired)
	}
	return nil
}

// repairTally recounts under the row lock so a concurrent vote is never overwritten
func (j *ReconcileJob) repairTally(ctx context.Context, target domain.TargetRef) (bool, error) {
	drifted := false
	err := j.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)

		current, err := repos.Tallies.GetForUpdate(ctx, target)
		if err != nil {
			return fmt.Errorf("lock %s %d: %w", target.Kind, target.ID, err)
		}
		actual, err := repos.Votes.CountByTarget(ctx, target)
		if err != nil {
			return fmt.Errorf("count votes for %s %d: %w", target.Kind, target.ID, err)
		}
		drifted = current != actual
		if !drifted {
			return nil
		}

		j.logger.Warn("Tally drift detected",
			zap.String("target_kind", string(target.Kind)),
			zap.Uint("target_id", target.ID),
			zap.Int64("cached_up", current.Up),
			zap.Int64("cached_down", current.Down),
			zap.Int64("actual_up", actual.Up),
			zap.Int64("actual_down", actual.Down),
			zap.Bool("dry_run", j.dryRun),
		)
		if j.dryRun {
			return nil
		}
		return repos.Tallies.Set(ctx, target, actual)
	})
	if err != nil {
		return drifted, err
	}

	if drifted && !j.dryRun {
		if err := j.cache.Invalidate(ctx, target); err != nil {
			j.logger.Warn("Failed to invalidate repaired tally", zap.String("key", cache.Key(target)), zap.Error(err))
		}
	}
	return drifted, nil
}

func (j *ReconcileJob) reconcileRosters(ctx context.Context, report *ReconcileReport) error {
	counts, err := j.repos.Participants.CountConfirmedByEvent(ctx)
	if err != nil {
		return fmt.Errorf("count confirmed participants: %w", err)
	}

	repaired := 0
	var afterID uint
	for {
		rows, err := j.repos.Events.ListConfirmedCounts(ctx, afterID, reconcilePageSize)
		if err != nil {
			return fmt.Errorf("list confirmed counts: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			afterID = row.ID
			if counts[row.ID] == row.ConfirmedCount {
				continue
			}
			fixed, err := j.repairRoster(ctx, row.ID)
			if err != nil {
				return err
			}
			if fixed {
				repaired++
			}
		}
	}

	report.mu.Lock()
	report.Roster += repaired
	report.mu.Unlock()

	if repaired > 0 && !j.dryRun {
		j.metrics.AddDriftRepaired("roster", repaired)
	}
	return nil
}

func (j *ReconcileJob) repairRoster(ctx context.Context, eventID uint) (bool, error) {
	drifted := false
	err := j.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)

		event, err := repos.Events.FindByIDForUpdate(ctx, eventID)
		if err != nil {
			return fmt.Errorf("lock event %d: %w", eventID, err)
		}
		actual, err := repos.Participants.CountByState(ctx, eventID, domain.ParticipantConfirmed)
		if err != nil {
			return fmt.Errorf("count confirmed for event %d: %w", eventID, err)
		}
		drifted = int64(event.ConfirmedCount) != actual
		if !drifted {
			return nil
		}

		j.logger.Warn("Confirmed count drift detected",
			zap.Uint("event_id", eventID),
			zap.Int("cached", event.ConfirmedCount),
			zap.Int64("actual", actual),
			zap.Bool("dry_run", j.dryRun),
		)
		if j.dryRun {
			return nil
		}
		return repos.Events.SetConfirmedCount(ctx, eventID, int(actual))
	})
	return drifted, err
}
