package database

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

const queryStartKey = "metrics:query_start"

// MetricsRecorder is an interface for recording database metrics
type MetricsRecorder interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
	UpdateDBStats(stats sql.DBStats)
}

type registerFunc func(name string, fn func(*gorm.DB)) error

// RegisterMetricsCallbacks times every query, create, update, delete and raw statement
func RegisterMetricsCallbacks(db *gorm.DB, recorder MetricsRecorder) error {
	cb := db.Callback()
	hooks := []struct {
		operation string
		before    registerFunc
		after     registerFunc
	}{
		{"select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"insert", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		operation := h.operation
		if err := h.before("metrics:"+operation+"_before", markStart); err != nil {
			return err
		}
		if err := h.after("metrics:"+operation+"_after", func(tx *gorm.DB) {
			observe(tx, operation, recorder)
		}); err != nil {
			return err
		}
	}
	return nil
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

func observe(tx *gorm.DB, operation string, recorder MetricsRecorder) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	// row-locking reads are where vote and roster writers queue up
	if operation == "select" {
		if _, locked := tx.Statement.Clauses["FOR"]; locked {
			operation = "select_for_update"
		}
	}
	recorder.RecordDBQuery(operation, table, time.Since(start), tx.Error)
}

// StartDBStatsCollector samples pool stats every interval until the returned channel is closed
func StartDBStatsCollector(db *gorm.DB, recorder MetricsRecorder, interval time.Duration) chan struct{} {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					continue
				}
				recorder.UpdateDBStats(sqlDB.Stats())
			case <-done:
				return
			}
		}
	}()

	return done
}
