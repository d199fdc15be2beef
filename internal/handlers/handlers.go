package handlers

import (
	"CardVault/internal/config"
	"CardVault/internal/middleware"
	"CardVault/internal/service"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	searchService *service.SearchService,
	inventoryService *service.InventoryService,
	catalogService *service.CatalogService,
	guard *middleware.PasswordGuard,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithCORS)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	inventoryHandler := NewInventoryHandler(searchService, inventoryService, logger, config)
	searchHandler := NewSearchHandler(searchService, logger)
	adminHandler := NewAdminHandler(catalogService, inventoryService, logger, config)

	// Public routes
	r.Get("/files", inventoryHandler.List)
	r.Post("/search", searchHandler.Exact)
	r.Get("/search", searchHandler.Substring)
	r.Get("/api/status", adminHandler.Status)
	r.Get("/api/jobs/{id}", adminHandler.Job)
	r.Delete("/api/session", adminHandler.Logout)

	// Password-gated routes
	r.With(middleware.WithBodyLimit(config.UploadMaxBytes()), guard.Require).Post("/upload", inventoryHandler.Upload)
	r.Group(func(r chi.Router) {
		r.Use(guard.Require)
		r.Delete("/files/{filename}", inventoryHandler.Delete)
		r.Post("/api/session", adminHandler.Login)
		r.Post("/api/catalog/refresh", adminHandler.Refresh)
	})

	// Frontend
	if st, err := os.Stat(config.PublicDir); err == nil && st.IsDir() {
		r.Handle("/*", http.FileServer(http.Dir(config.PublicDir)))
	} else {
		logger.Infow("Public dir not found, frontend disabled", "dir", config.PublicDir)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found.")
	})

	return &Handler{Router: r}
}
