package handlers

import (
	"CardVault/internal/repo/fs"
	"CardVault/internal/service"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorResponse — единый формат ошибки.
type ErrorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}

// writeError переводит ошибку сервиса в HTTP-статус.
func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	var tooLarge *http.MaxBytesError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fs.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fs.ErrInvalidName), errors.Is(err, fs.ErrMalformed), errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	if status >= http.StatusInternalServerError {
		logger.Errorw(op+" failed", "error", err)
	} else {
		logger.Warnw(op+" rejected", "status", status, "error", err)
	}
	writeMessage(w, status, err.Error())
}
