package service

import (
	"CardVault/internal/model"
	"CardVault/internal/repo"
	"CardVault/internal/repo/fs"
	"CardVault/internal/worker"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadStore — операции хранилища для загрузки и удаления.
type UploadStore interface {
	SaveUpload(name string, r io.Reader) error
	Delete(name string) error
}

// FileEnricher обогащает один файл.
type FileEnricher interface {
	EnrichFile(ctx context.Context, name string) (int, error)
}

// TaskQueue — очередь фоновых задач.
type TaskQueue interface {
	Submit(t worker.Task) (string, error)
	Len() int
}

// InventoryService — загрузка и удаление файлов инвентаря. После загрузки
// обогащение файла ставится в очередь отдельной задачей.
type InventoryService struct {
	store    UploadStore
	locks    *FileLocks
	enricher FileEnricher
	jobs     repo.JobRepository
	queue    TaskQueue
	logger   *zap.SugaredLogger
}

// NewInventoryService создаёт сервис инвентаря.
func NewInventoryService(
	store UploadStore,
	locks *FileLocks,
	enricher FileEnricher,
	jobs repo.JobRepository,
	queue TaskQueue,
	logger *zap.SugaredLogger,
) *InventoryService {
	if locks == nil {
		locks = NewFileLocks()
	}
	return &InventoryService{
		store:    store,
		locks:    locks,
		enricher: enricher,
		jobs:     jobs,
		queue:    queue,
		logger:   logger,
	}
}

// Upload сохраняет содержимое r как <user>.csv и ставит обогащение в очередь.
// Ошибка постановки в очередь не делает загрузку неуспешной: файл уже сохранён,
// а задача помечается как failed.
func (s *InventoryService) Upload(ctx context.Context, user string, r io.Reader) (filename, jobID string, err error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	filename = fs.FileName(user)
	if err := fs.ValidateName(filename); err != nil {
		return "", "", err
	}

	unlock := s.locks.Lock(filename)
	err = s.store.SaveUpload(filename, r)
	unlock()
	if err != nil {
		return "", "", err
	}
	s.logger.Infow("Upload: file saved", "file", filename)

	job := &model.EnrichJob{ID: uuid.NewString(), FileName: filename, Status: model.StatusQueued}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Errorw("Upload: failed to create job", "file", filename, "error", err)
		return filename, "", nil
	}

	_, err = s.queue.Submit(worker.Task{
		ID:   job.ID,
		Name: "enrich " + filename,
		Run: func(ctx context.Context) error {
			return s.runJob(ctx, job.ID, filename)
		},
	})
	if err != nil {
		s.logger.Errorw("Upload: failed to queue enrichment", "file", filename, "job_id", job.ID, "error", err)
		if ferr := s.jobs.MarkFinished(context.WithoutCancel(ctx), job.ID, 0, err); ferr != nil {
			s.logger.Warnw("Upload: failed to mark job", "job_id", job.ID, "error", ferr)
		}
	}
	return filename, job.ID, nil
}

func (s *InventoryService) runJob(ctx context.Context, id, filename string) error {
	if err := s.jobs.MarkRunning(ctx, id); err != nil {
		s.logger.Warnw("Job: failed to mark running", "job_id", id, "error", err)
	}
	n, err := s.enricher.EnrichFile(ctx, filename)
	if ferr := s.jobs.MarkFinished(context.WithoutCancel(ctx), id, n, err); ferr != nil {
		s.logger.Warnw("Job: failed to mark finished", "job_id", id, "error", ferr)
	}
	if err != nil {
		return fmt.Errorf("enrich %s: %w", filename, err)
	}
	s.logger.Infow("Job: file enriched", "job_id", id, "file", filename, "updated_rows", n)
	return nil
}

// Delete удаляет файл инвентаря по полному имени (с .csv).
func (s *InventoryService) Delete(_ context.Context, filename string) error {
	if err := fs.ValidateName(filename); err != nil {
		return err
	}
	unlock := s.locks.Lock(filename)
	defer unlock()
	if err := s.store.Delete(filename); err != nil {
		return err
	}
	s.logger.Infow("Delete: file removed", "file", filename)
	return nil
}

// Job возвращает задачу обогащения по идентификатору.
func (s *InventoryService) Job(ctx context.Context, id string) (*model.EnrichJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: bad job id", ErrInvalidInput)
	}
	return s.jobs.GetByID(ctx, id)
}

// Pending — число задач, ожидающих в очереди.
func (s *InventoryService) Pending() int {
	return s.queue.Len()
}

// FailedJobs — сколько задач обогащения после загрузки завершились ошибкой.
func (s *InventoryService) FailedJobs(ctx context.Context) (int64, error) {
	return s.jobs.CountByStatus(ctx, model.StatusFailed)
}
