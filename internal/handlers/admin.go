package handlers

import (
	"CardVault/internal/config"
	"CardVault/internal/middleware"
	"CardVault/internal/model"
	"CardVault/internal/service"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler — сессия, ручное обновление справочника и статус фоновых задач.
type AdminHandler struct {
	Catalog   *service.CatalogService
	Inventory *service.InventoryService
	Logger    *zap.SugaredLogger
	Config    *config.Config
}

// NewAdminHandler создаёт служебный хендлер
func NewAdminHandler(catalogSvc *service.CatalogService, inventory *service.InventoryService, logger *zap.SugaredLogger, cfg *config.Config) *AdminHandler {
	return &AdminHandler{Catalog: catalogSvc, Inventory: inventory, Logger: logger, Config: cfg}
}

// StatusResponse — состояние справочника и очереди.
type StatusResponse struct {
	Catalog     service.CatalogInfo `json:"catalog"`
	LastRefresh *model.RefreshRun   `json:"last_refresh"`
	LastSuccess *model.RefreshRun   `json:"last_success"`
	PendingJobs int                 `json:"pending_jobs"`
	FailedJobs  int64               `json:"failed_jobs"`
	Currency    string              `json:"currency"`
	Schedule    string              `json:"schedule"`
	TimeZone    string              `json:"time_zone"`
}

// Login выдаёт cookie сессии. Пароль уже проверен middleware.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := middleware.SetLoginCookie(w, h.Config.AuthSecret); err != nil {
		writeError(w, h.Logger, "Login", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged in.")
}

// Logout удаляет cookie сессии.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	writeMessage(w, http.StatusOK, "Logged out.")
}

// Refresh запускает обновление справочника в фоне.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	// обновление переживает запрос
	h.Catalog.RefreshInBackground(context.WithoutCancel(r.Context()), model.TriggerManual)
	writeMessage(w, http.StatusAccepted, "Catalog refresh started.")
}

// Status отдаёт состояние справочника, последний запуск и длину очереди.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	last, err := h.Catalog.LastRun(r.Context())
	if err != nil {
		writeError(w, h.Logger, "Status", err)
		return
	}
	success := last
	if last != nil && last.Status != model.StatusDone {
		if success, err = h.Catalog.LastSuccessfulRun(r.Context()); err != nil {
			writeError(w, h.Logger, "Status", err)
			return
		}
	}
	failed, err := h.Inventory.FailedJobs(r.Context())
	if err != nil {
		writeError(w, h.Logger, "Status", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Catalog:     h.Catalog.Info(),
		LastRefresh: last,
		LastSuccess: success,
		PendingJobs: h.Inventory.Pending(),
		FailedJobs:  failed,
		Currency:    h.Config.PriceCurrency,
		Schedule:    h.Config.RefreshSchedule,
		TimeZone:    h.Config.RefreshTZ,
	})
}

// Job отдаёт задачу обогащения по id.
func (h *AdminHandler) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.Inventory.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
