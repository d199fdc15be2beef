package service

import (
	"CardVault/internal/model"
	"CardVault/internal/repo"
	"CardVault/internal/scryfall"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// BulkFetcher — источник bulk-выгрузки.
type BulkFetcher interface {
	FindBulkData(ctx context.Context, typ string) (*scryfall.BulkData, error)
	Download(ctx context.Context, uri string, dst io.Writer) (int64, error)
}

// AllEnricher обогащает все файлы хранилища.
type AllEnricher interface {
	EnrichAll(ctx context.Context) (EnrichSummary, error)
}

// CatalogInfo — состояние локального справочника.
type CatalogInfo struct {
	Present   bool       `json:"present"`
	Path      string     `json:"path"`
	Size      int64      `json:"size,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CatalogService скачивает справочник цен и запускает полное обогащение.
type CatalogService struct {
	fetcher     BulkFetcher
	enricher    AllEnricher
	runs        repo.RunRepository
	path        string
	datasetType string
	logger      *zap.SugaredLogger

	group singleflight.Group
}

// NewCatalogService создаёт сервис обновления справочника.
func NewCatalogService(
	fetcher BulkFetcher,
	enricher AllEnricher,
	runs repo.RunRepository,
	path, datasetType string,
	logger *zap.SugaredLogger,
) *CatalogService {
	if datasetType == "" {
		datasetType = scryfall.DefaultCardsType
	}
	return &CatalogService{
		fetcher:     fetcher,
		enricher:    enricher,
		runs:        runs,
		path:        path,
		datasetType: datasetType,
		logger:      logger,
	}
}

// Refresh скачивает свежую выгрузку и обогащает все файлы. Одновременные
// вызовы объединяются в один запуск. Ошибка пишется в лог и в историю запусков;
// прежняя копия справочника при этом остаётся на месте.
func (s *CatalogService) Refresh(ctx context.Context, trigger string) (*model.RefreshRun, error) {
	v, err, shared := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx, trigger)
	})
	if shared {
		s.logger.Debugw("Refresh: joined in-flight run", "trigger", trigger)
	}
	run, _ := v.(*model.RefreshRun)
	return run, err
}

// RefreshInBackground запускает Refresh в отдельной горутине.
func (s *CatalogService) RefreshInBackground(ctx context.Context, trigger string) {
	go func() {
		_, _ = s.Refresh(ctx, trigger)
	}()
}

// EnsureCatalog запускает обновление, если локальной копии справочника нет.
func (s *CatalogService) EnsureCatalog(ctx context.Context) error {
	if s.Info().Present {
		s.logger.Infow("Catalog present, skipping startup refresh", "path", s.path)
		return nil
	}
	_, err := s.Refresh(ctx, model.TriggerStartup)
	return err
}

// Info описывает локальный файл справочника.
func (s *CatalogService) Info() CatalogInfo {
	info := CatalogInfo{Path: s.path}
	st, err := os.Stat(s.path)
	if err != nil || !st.Mode().IsRegular() {
		return info
	}
	mt := st.ModTime().UTC()
	info.Present = true
	info.Size = st.Size()
	info.UpdatedAt = &mt
	return info
}

// LastRun возвращает последний запуск обновления или nil, если запусков не было.
func (s *CatalogService) LastRun(ctx context.Context) (*model.RefreshRun, error) {
	run, err := s.runs.Last(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return run, err
}

// LastSuccessfulRun возвращает последний успешный запуск или nil.
func (s *CatalogService) LastSuccessfulRun(ctx context.Context) (*model.RefreshRun, error) {
	run, err := s.runs.LastSuccessful(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *CatalogService) refresh(ctx context.Context, trigger string) (*model.RefreshRun, error) {
	run := &model.RefreshRun{Trigger: trigger, Status: model.StatusRunning, StartedAt: time.Now().UTC()}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warnw("Refresh: failed to record run", "error", err)
	}
	s.logger.Infow("Refresh: started", "trigger", trigger, "dataset", s.datasetType)

	err := s.download(ctx, run)
	if err == nil {
		var sum EnrichSummary
		sum, err = s.enricher.EnrichAll(ctx)
		run.Cards = sum.Cards
		run.Files = sum.Files
		run.FailedFiles = sum.Failed
		run.Updated = sum.Updated
	}
	s.finish(ctx, run, err)
	return run, err
}

func (s *CatalogService) download(ctx context.Context, run *model.RefreshRun) error {
	bd, err := s.fetcher.FindBulkData(ctx, s.datasetType)
	if err != nil {
		return fmt.Errorf("find bulk data: %w", err)
	}
	run.DatasetURI = bd.DownloadURI

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := s.fetcher.Download(ctx, bd.DownloadURI, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("download catalog: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace catalog: %w", err)
	}
	run.Bytes = n
	s.logger.Infow("Refresh: catalog downloaded", "uri", bd.DownloadURI, "bytes", n, "path", s.path)
	return nil
}

func (s *CatalogService) finish(ctx context.Context, run *model.RefreshRun, err error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = model.StatusDone
	if err != nil {
		run.Status = model.StatusFailed
		run.Error = err.Error()
		s.logger.Errorw("Refresh: failed", "trigger", run.Trigger, "error", err)
	} else {
		s.logger.Infow("Refresh: finished",
			"trigger", run.Trigger,
			"files", run.Files,
			"failed_files", run.FailedFiles,
			"updated_rows", run.Updated,
			"duration", now.Sub(run.StartedAt),
		)
	}
	// запись результата не должна зависеть от отмены контекста запуска
	if serr := s.runs.Save(context.WithoutCancel(ctx), run); serr != nil {
		s.logger.Warnw("Refresh: failed to save run", "error", serr)
	}
}
