package service

import (
	"CardVault/internal/model"
	"CardVault/internal/repo"
	"CardVault/internal/scryfall"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FindBulkData(ctx context.Context, typ string) (*scryfall.BulkData, error) {
	args := m.Called(ctx, typ)
	if v, ok := args.Get(0).(*scryfall.BulkData); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFetcher) Download(ctx context.Context, uri string, dst io.Writer) (int64, error) {
	args := m.Called(ctx, uri, dst)
	body := args.String(0)
	if body != "" {
		n, err := io.Copy(dst, strings.NewReader(body))
		if err != nil {
			return n, err
		}
		return n, args.Error(1)
	}
	return 0, args.Error(1)
}

type mockEnricher struct{ mock.Mock }

func (m *mockEnricher) EnrichAll(ctx context.Context) (EnrichSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(EnrichSummary), args.Error(1)
}

// memRuns — RunRepository в памяти.
type memRuns struct {
	mu   sync.Mutex
	runs []model.RefreshRun
}

func (r *memRuns) Create(_ context.Context, run *model.RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.ID = int64(len(r.runs) + 1)
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memRuns) Save(_ context.Context, run *model.RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID-1] = *run
	return nil
}

func (r *memRuns) Last(context.Context) (*model.RefreshRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	run := r.runs[len(r.runs)-1]
	return &run, nil
}

func (r *memRuns) LastSuccessful(context.Context) (*model.RefreshRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].Status == model.StatusDone {
			run := r.runs[i]
			return &run, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ repo.RunRepository = (*memRuns)(nil)

const catalogJSON = `[{"id":"abc","prices":{"eur":"1.00","eur_foil":"2.00"}}]`

func TestCatalogService_Refresh_OK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "cards.json")
	f := new(mockFetcher)
	e := new(mockEnricher)
	runs := &memRuns{}
	svc := NewCatalogService(f, e, runs, path, "", zap.NewNop().Sugar())

	bd := &scryfall.BulkData{Type: scryfall.DefaultCardsType, DownloadURI: "https://data.example/cards.json"}
	f.On("FindBulkData", mock.Anything, scryfall.DefaultCardsType).Return(bd, nil).Once()
	f.On("Download", mock.Anything, bd.DownloadURI, mock.Anything).Return(catalogJSON, nil).Once()
	e.On("EnrichAll", mock.Anything).Return(EnrichSummary{Cards: 1, Files: 2, Failed: 1, Updated: 5}, nil).Once()

	run, err := svc.Refresh(context.Background(), model.TriggerManual)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.StatusDone, run.Status)
	assert.Equal(t, model.TriggerManual, run.Trigger)
	assert.Equal(t, int64(len(catalogJSON)), run.Bytes)
	assert.Equal(t, 2, run.Files)
	assert.Equal(t, 1, run.FailedFiles)
	assert.Equal(t, 5, run.Updated)
	assert.NotNil(t, run.FinishedAt)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, catalogJSON, string(b))

	last, err := svc.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, last.Status)
	assert.Equal(t, bd.DownloadURI, last.DatasetURI)

	info := svc.Info()
	assert.True(t, info.Present)
	assert.Equal(t, int64(len(catalogJSON)), info.Size)

	f.AssertExpectations(t)
	e.AssertExpectations(t)
}

func TestCatalogService_Refresh_DownloadFailKeepsOldCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	f := new(mockFetcher)
	e := new(mockEnricher)
	runs := &memRuns{}
	svc := NewCatalogService(f, e, runs, path, scryfall.DefaultCardsType, zap.NewNop().Sugar())

	bd := &scryfall.BulkData{DownloadURI: "https://data.example/cards.json"}
	f.On("FindBulkData", mock.Anything, scryfall.DefaultCardsType).Return(bd, nil).Once()
	f.On("Download", mock.Anything, bd.DownloadURI, mock.Anything).Return("partial", errors.New("connection reset")).Once()

	run, err := svc.Refresh(context.Background(), model.TriggerSchedule)
	require.Error(t, err)
	assert.Equal(t, model.StatusFailed, run.Status)
	assert.Contains(t, run.Error, "connection reset")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(b))

	// временные файлы не остаются
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	e.AssertNotCalled(t, "EnrichAll", mock.Anything)
}

func TestCatalogService_Refresh_LookupFails(t *testing.T) {
	f := new(mockFetcher)
	e := new(mockEnricher)
	svc := NewCatalogService(f, e, &memRuns{}, filepath.Join(t.TempDir(), "c.json"), "", zap.NewNop().Sugar())

	f.On("FindBulkData", mock.Anything, scryfall.DefaultCardsType).Return(nil, scryfall.ErrDatasetNotFound).Once()

	run, err := svc.Refresh(context.Background(), model.TriggerManual)
	assert.ErrorIs(t, err, scryfall.ErrDatasetNotFound)
	assert.Equal(t, model.StatusFailed, run.Status)
	assert.False(t, svc.Info().Present)
}

func TestCatalogService_EnsureCatalog(t *testing.T) {
	t.Run("present: no download", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cards.json")
		require.NoError(t, os.WriteFile(path, []byte(catalogJSON), 0o644))
		f := new(mockFetcher)
		e := new(mockEnricher)
		svc := NewCatalogService(f, e, &memRuns{}, path, "", zap.NewNop().Sugar())

		require.NoError(t, svc.EnsureCatalog(context.Background()))
		f.AssertNotCalled(t, "FindBulkData", mock.Anything, mock.Anything)

		last, err := svc.LastRun(context.Background())
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("missing: startup refresh", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cards.json")
		f := new(mockFetcher)
		e := new(mockEnricher)
		runs := &memRuns{}
		svc := NewCatalogService(f, e, runs, path, "", zap.NewNop().Sugar())

		bd := &scryfall.BulkData{DownloadURI: "u"}
		f.On("FindBulkData", mock.Anything, scryfall.DefaultCardsType).Return(bd, nil).Once()
		f.On("Download", mock.Anything, "u", mock.Anything).Return(catalogJSON, nil).Once()
		e.On("EnrichAll", mock.Anything).Return(EnrichSummary{}, nil).Once()

		require.NoError(t, svc.EnsureCatalog(context.Background()))
		last, err := runs.Last(context.Background())
		require.NoError(t, err)
		assert.Equal(t, model.TriggerStartup, last.Trigger)
	})
}

func TestCatalogService_Refresh_ConcurrentCallsShareRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	f := new(mockFetcher)
	e := new(mockEnricher)
	runs := &memRuns{}
	svc := NewCatalogService(f, e, runs, path, "", zap.NewNop().Sugar())

	release := make(chan struct{})
	bd := &scryfall.BulkData{DownloadURI: "u"}
	f.On("FindBulkData", mock.Anything, scryfall.DefaultCardsType).
		Run(func(mock.Arguments) { <-release }).
		Return(bd, nil).Once()
	f.On("Download", mock.Anything, "u", mock.Anything).Return(catalogJSON, nil).Once()
	e.On("EnrichAll", mock.Anything).Return(EnrichSummary{}, nil).Once()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), model.TriggerManual)
			assert.NoError(t, err)
		}()
	}
	// даём горутинам встать в ожидание общего запуска
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	f.AssertExpectations(t)
	e.AssertExpectations(t)
	assert.Len(t, runs.runs, 1)
}
