package handlers

import (
	"CardVault/internal/config"
	"CardVault/internal/service"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InventoryHandler — листинг, загрузка и удаление файлов инвентаря.
type InventoryHandler struct {
	Search    *service.SearchService
	Inventory *service.InventoryService
	Logger    *zap.SugaredLogger
	Config    *config.Config
}

// NewInventoryHandler создаёт хендлер инвентаря
func NewInventoryHandler(search *service.SearchService, inventory *service.InventoryService, logger *zap.SugaredLogger, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{Search: search, Inventory: inventory, Logger: logger, Config: cfg}
}

// UploadResponse — ответ на успешную загрузку.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	JobID    string `json:"job_id,omitempty"`
}

// List отдаёт до 10 самых дорогих строк каждого файла.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Search.ListTop(r.Context())
	if err != nil {
		writeError(w, h.Logger, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Upload принимает multipart-форму с полями file и username.
func (h *InventoryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.Logger, "Upload", err)
			return
		}
		writeMessage(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		writeMessage(w, http.StatusBadRequest, "No username provided.")
		return
	}

	filename, jobID, err := h.Inventory.Upload(r.Context(), username, file)
	if err != nil {
		writeError(w, h.Logger, "Upload", err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Message:  "File uploaded successfully!",
		Filename: filename,
		JobID:    jobID,
	})
}

// Delete удаляет файл по имени из пути.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.Inventory.Delete(r.Context(), filename); err != nil {
		writeError(w, h.Logger, "Delete", err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Message: "File deleted successfully.", Filename: filename})
}
