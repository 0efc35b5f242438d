package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"community-interaction-api/internal/response"
)

// A conflicting transaction is retried at most once before the conflict is surfaced.
const maxConflictRetries = 1

// PostgreSQL SQLSTATE codes treated as commit-time conflicts
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// Transactor runs fn as one all-or-nothing unit of work
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RetryRecorder observes transparent conflict retries
type RetryRecorder interface {
	RecordTxRetry(reason string)
}

// GormTransactor implements Transactor on top of gorm.DB.Transaction
type GormTransactor struct {
	db              *gorm.DB
	logger          *zap.Logger
	recorder        RetryRecorder
	initialInterval time.Duration
}

// TransactorOption customizes a GormTransactor
type TransactorOption func(*GormTransactor)

// WithRetryRecorder reports retries to r
func WithRetryRecorder(r RetryRecorder) TransactorOption {
	return func(t *GormTransactor) {
		t.recorder = r
	}
}

// WithRetryInterval sets the wait before the single retry
func WithRetryInterval(d time.Duration) TransactorOption {
	return func(t *GormTransactor) {
		t.initialInterval = d
	}
}

// NewTransactor creates a Transactor for db
func NewTransactor(db *gorm.DB, logger *zap.Logger, opts ...TransactorOption) *GormTransactor {
	t := &GormTransactor{
		db:              db,
		logger:          logger,
		initialInterval: 25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithinTransaction runs fn in a transaction. Any error from fn or from commit rolls
// the whole unit back. Commit-time conflicts are retried once, then reported as
// ConflictFailure. AppErrors from fn pass through untouched, anything else becomes
// a storage failure.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := t.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}

		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return backoff.Permanent(err)
		}

		reason, conflict := ConflictReason(err)
		if !conflict {
			return backoff.Permanent(err)
		}
		if attempt <= maxConflictRetries {
			t.logger.Warn("Transaction conflict, retrying",
				zap.String("reason", reason),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if t.recorder != nil {
				t.recorder.RecordTxRetry(reason)
			}
		}
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = t.initialInterval
	expBackoff.MaxInterval = 4 * t.initialInterval

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expBackoff, maxConflictRetries), ctx))
	if err == nil {
		return nil
	}
	return classifyTxError(err)
}

func classifyTxError(err error) error {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if _, conflict := ConflictReason(err); conflict {
		return response.NewConflictError("Concurrent update conflict, please retry", err.Error())
	}
	return response.NewAppError(response.ErrCodeInternal, "Storage failure", err.Error())
}

// ConflictReason reports whether err is a concurrency conflict worth one retry
func ConflictReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "unique_violation", true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure:
			return "serialization_failure", true
		case pgDeadlockDetected:
			return "deadlock_detected", true
		case pgUniqueViolation:
			return "unique_violation", true
		}
		return "", false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint"):
		return "unique_violation", true
	case strings.Contains(msg, "database is locked"):
		return "database_locked", true
	}
	return "", false
}

// ForUpdate adds a row lock to the next query. SQLite ignores the clause.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
