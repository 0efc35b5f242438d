package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/domain"
)

// modelInfo holds information about a domain model and its table name
type modelInfo struct {
	model     interface{}
	tableName string
}

func engineModels() []modelInfo {
	return []modelInfo{
		{&domain.Post{}, "posts"},
		{&domain.Event{}, "events"},
		{&domain.Comment{}, "comments"},
		{&domain.Vote{}, "votes"},
		{&domain.Participant{}, "participants"},
		{&domain.OutboxEvent{}, "outbox_events"},
	}
}

// AutoMigrate creates or updates every engine table
func AutoMigrate(db *gorm.DB) error {
	models := engineModels()
	all := make([]interface{}, 0, len(models))
	for _, m := range models {
		all = append(all, m.model)
	}

	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return nil
}

// SafeAutoMigrate migrates table by table and logs whether each one already existed
func SafeAutoMigrate(db *gorm.DB, logger *zap.Logger) error {
	migrator := db.Migrator()
	models := engineModels()

	logger.Info("Starting safe auto-migration", zap.Int("total_models", len(models)))

	for _, m := range models {
		existed := migrator.HasTable(m.model)

		if err := db.AutoMigrate(m.model); err != nil {
			logger.Error("Failed to migrate table",
				zap.String("table", m.tableName),
				zap.Bool("table_existed", existed),
				zap.Error(err),
			)
			return fmt.Errorf("failed to migrate table %s: %w", m.tableName, err)
		}

		logger.Info("Migrated table",
			zap.String("table", m.tableName),
			zap.Bool("was_existing", existed),
		)
	}

	logger.Info("Safe auto-migration completed", zap.Int("tables_migrated", len(models)))
	return nil
}

// SafeAutoMigrateWithRetry runs SafeAutoMigrate up to maxRetries times with linear backoff
func SafeAutoMigrateWithRetry(db *gorm.DB, logger *zap.Logger, maxRetries int) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = SafeAutoMigrate(db, logger); err == nil {
			return nil
		}
		if attempt < maxRetries {
			wait := time.Duration(attempt) * time.Second
			logger.Warn("Migration attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("migration failed after %d attempts: %w", maxRetries, err)
}
