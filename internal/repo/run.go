package repo

import (
	"CardVault/internal/model"
	"context"

	"gorm.io/gorm"
)

// RunRepository — история запусков обновления справочника.
type RunRepository interface {
	Create(ctx context.Context, run *model.RefreshRun) error
	Save(ctx context.Context, run *model.RefreshRun) error
	// Last возвращает последний запуск или gorm.ErrRecordNotFound.
	Last(ctx context.Context) (*model.RefreshRun, error)
	// LastSuccessful возвращает последний успешный запуск или gorm.ErrRecordNotFound.
	LastSuccessful(ctx context.Context) (*model.RefreshRun, error)
}

type runRepo struct {
	db *gorm.DB
}

// NewRunRepository создаёт gorm-реализацию RunRepository.
func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) Create(ctx context.Context, run *model.RefreshRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *runRepo) Save(ctx context.Context, run *model.RefreshRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *runRepo) Last(ctx context.Context) (*model.RefreshRun, error) {
	var run model.RefreshRun
	if err := r.db.WithContext(ctx).Order("id DESC").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepo) LastSuccessful(ctx context.Context) (*model.RefreshRun, error) {
	var run model.RefreshRun
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StatusDone).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
