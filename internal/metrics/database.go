package metrics

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UpdateDBStats mirrors the pool counters. WaitCount and WaitDuration are
// already cumulative in sql.DBStats, so they are set rather than added.
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.safeExecute("UpdateDBStats", func() {
		m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
		m.DBConnectionsInUse.Set(float64(stats.InUse))
		m.DBConnectionsIdle.Set(float64(stats.Idle))
		m.DBConnectionsMax.Set(float64(stats.MaxOpenConnections))
		m.DBConnectionWaitTotal.Set(float64(stats.WaitCount))
		m.DBConnectionWaitDuration.Set(stats.WaitDuration.Seconds())
	})
}

// RecordDBQuery observes one statement. A missing row is an answer, not a failure.
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	m.safeExecute("RecordDBQuery", func() {
		operation = strings.ToLower(operation)
		m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())

		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}
		m.DBQueryErrors.WithLabelValues(operation, table, dbErrorKind(err)).Inc()
	})
}

// dbErrorKind separates the failures the transactor retries from the rest
func dbErrorKind(err error) string {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "duplicate"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return "duplicate"
		case strings.HasPrefix(pgErr.Code, "40"):
			return "conflict"
		case pgErr.Code == "55P03":
			return "lock_timeout"
		}
	}
	if strings.Contains(err.Error(), "database is locked") {
		return "conflict"
	}
	return "other"
}
