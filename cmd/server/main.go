package main

import (
	"CardVault/internal/config"
	"CardVault/internal/handlers"
	"CardVault/internal/middleware"
	"CardVault/internal/model"
	"CardVault/internal/repo"
	fsrepo "CardVault/internal/repo/fs"
	"CardVault/internal/scheduler"
	"CardVault/internal/scryfall"
	"CardVault/internal/service"
	"CardVault/internal/worker"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

// размер очереди задач обогащения после загрузки
const queueSize = 64

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.LogFormat == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Debugw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := fsrepo.NewInventoryStore(cfg.StoreDir)
	if err := store.EnsureReady(); err != nil {
		sugar.Fatalw("failed to prepare inventory dir", "dir", cfg.StoreDir, "error", err)
	}

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}
	jobRepo := repo.NewJobRepository(gormDB)
	runRepo := repo.NewRunRepository(gormDB)

	queue := worker.NewQueue(queueSize, sugar)
	queue.Start(ctx)
	go func() {
		for te := range queue.Errors() {
			sugar.Errorw("Background task failed", "task", te.Name, "id", te.TaskID, "error", te.Err)
		}
	}()

	locks := service.NewFileLocks()
	enrichSvc := service.NewEnrichService(store, locks, service.FileCatalog(cfg.CatalogPath, cfg.PriceCurrency), sugar)
	bulk := scryfall.NewClient(cfg.BulkDataURL, nil)
	catalogSvc := service.NewCatalogService(bulk, enrichSvc, runRepo, cfg.CatalogPath, cfg.BulkDataType, sugar)
	searchSvc := service.NewSearchService(store, sugar)
	inventorySvc := service.NewInventoryService(store, locks, enrichSvc, jobRepo, queue, sugar)

	guard, err := middleware.NewPasswordGuard(cfg.Password, cfg.BcryptCost)
	if err != nil {
		sugar.Fatalw("failed to hash password", "error", err)
	}

	h := handlers.NewHandler(searchSvc, inventorySvc, catalogSvc, guard, sugar, cfg)

	sched, err := scheduler.New(cfg.RefreshTZ, sugar)
	if err != nil {
		sugar.Fatalw("invalid refresh time zone", "tz", cfg.RefreshTZ, "error", err)
	}
	err = sched.Every(cfg.RefreshSchedule, "catalog-refresh", func(ctx context.Context) {
		// ошибка уже записана в лог и историю запусков
		_, _ = catalogSvc.Refresh(ctx, model.TriggerSchedule)
	})
	if err != nil {
		sugar.Fatalw("invalid refresh schedule", "schedule", cfg.RefreshSchedule, "error", err)
	}
	sched.Start()

	// справочник скачивается при первом запуске; сервер при этом уже принимает запросы
	go func() {
		if err := catalogSvc.EnsureCatalog(ctx); err != nil {
			sugar.Warnw("Initial catalog download failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow(
		"Starting server",
		"addr", srv.Addr,
	)

	sugar.Infow("Config",
		"StoreDir", cfg.StoreDir,
		"CatalogPath", cfg.CatalogPath,
		"Currency", cfg.PriceCurrency,
		"RefreshSchedule", cfg.RefreshSchedule,
		"RefreshTZ", cfg.RefreshTZ,
		"UploadMaxSizeMB", cfg.UploadMaxSizeMB,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Server shutdown failed", "error", err)
	}
	sched.Stop(shutdownCtx)
	queue.Stop()
}
