package repo

import (
	"CardVault/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

// JobRepository — доступ к записям задач обогащения после загрузки.
type JobRepository interface {
	Create(ctx context.Context, job *model.EnrichJob) error
	// GetByID возвращает gorm.ErrRecordNotFound, если задачи нет.
	GetByID(ctx context.Context, id string) (*model.EnrichJob, error)
	MarkRunning(ctx context.Context, id string) error
	// MarkFinished фиксирует результат: jobErr == nil — done, иначе failed.
	MarkFinished(ctx context.Context, id string, updated int, jobErr error) error
	CountByStatus(ctx context.Context, status model.JobStatus) (int64, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepository создаёт gorm-реализацию JobRepository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, job *model.EnrichJob) error {
	if job.Status == "" {
		job.Status = model.StatusQueued
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.EnrichJob, error) {
	var job model.EnrichJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) MarkRunning(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"status": model.StatusRunning})
}

func (r *jobRepo) MarkFinished(ctx context.Context, id string, updated int, jobErr error) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"status":      model.StatusDone,
		"updated":     updated,
		"error":       "",
		"finished_at": &now,
	}
	if jobErr != nil {
		fields["status"] = model.StatusFailed
		fields["error"] = jobErr.Error()
	}
	return r.update(ctx, id, fields)
}

func (r *jobRepo) CountByStatus(ctx context.Context, status model.JobStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EnrichJob{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *jobRepo) update(ctx context.Context, id string, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.EnrichJob{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
