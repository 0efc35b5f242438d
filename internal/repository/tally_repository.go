package repository

import (
	"context"

	"gorm.io/gorm"

	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
)

// TallyRepository reads and writes the cached vote counters of any target kind.
// The kind decides which table and columns are touched.
type TallyRepository interface {
	Get(ctx context.Context, target domain.TargetRef) (domain.Tally, error)
	// GetForUpdate locks the target row until the surrounding transaction ends
	GetForUpdate(ctx context.Context, target domain.TargetRef) (domain.Tally, error)
	ApplyDelta(ctx context.Context, target domain.TargetRef, up, down int64) error
	Set(ctx context.Context, target domain.TargetRef, tally domain.Tally) error
	// List pages through the cached tallies of one kind ordered by id
	List(ctx context.Context, kind domain.TargetKind, afterID uint, limit int) ([]TargetTally, error)
}

// TargetTally is a row id with its cached tally
type TargetTally struct {
	ID   uint
	Up   int64
	Down int64
}

type tallyRepositoryImpl struct {
	db *gorm.DB
}

// NewTallyRepository creates a new instance of TallyRepository
func NewTallyRepository(db *gorm.DB) TallyRepository {
	return &tallyRepositoryImpl{db: db}
}

func (r *tallyRepositoryImpl) selectTally(q *gorm.DB, target domain.TargetRef) (domain.Tally, error) {
	cols := target.Kind.Columns()
	var row TargetTally
	if err := q.Table(cols.Table).
		Select("id, "+cols.Up+" AS up, "+cols.Down+" AS down").
		Where("id = ?", target.ID).
		Take(&row).Error; err != nil {
		return domain.Tally{}, err
	}
	return domain.Tally{Up: row.Up, Down: row.Down}, nil
}

func (r *tallyRepositoryImpl) Get(ctx context.Context, target domain.TargetRef) (domain.Tally, error) {
	return r.selectTally(r.db.WithContext(ctx), target)
}

func (r *tallyRepositoryImpl) GetForUpdate(ctx context.Context, target domain.TargetRef) (domain.Tally, error) {
	return r.selectTally(database.ForUpdate(r.db.WithContext(ctx)), target)
}

func (r *tallyRepositoryImpl) ApplyDelta(ctx context.Context, target domain.TargetRef, up, down int64) error {
	if up == 0 && down == 0 {
		return nil
	}
	cols := target.Kind.Columns()
	res := r.db.WithContext(ctx).
		Table(cols.Table).
		Where("id = ?", target.ID).
		UpdateColumns(map[string]interface{}{
			cols.Up:   gorm.Expr(cols.Up+" + ?", up),
			cols.Down: gorm.Expr(cols.Down+" + ?", down),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tallyRepositoryImpl) Set(ctx context.Context, target domain.TargetRef, tally domain.Tally) error {
	cols := target.Kind.Columns()
	return r.db.WithContext(ctx).
		Table(cols.Table).
		Where("id = ?", target.ID).
		UpdateColumns(map[string]interface{}{
			cols.Up:   tally.Up,
			cols.Down: tally.Down,
		}).Error
}

func (r *tallyRepositoryImpl) List(ctx context.Context, kind domain.TargetKind, afterID uint, limit int) ([]TargetTally, error) {
	cols := kind.Columns()
	var rows []TargetTally
	if err := r.db.WithContext(ctx).
		Table(cols.Table).
		Select("id, "+cols.Up+" AS up, "+cols.Down+" AS down").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
