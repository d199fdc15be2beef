package handlers

import (
	"CardVault/internal/service"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// SearchHandler — поиск по имени карты.
type SearchHandler struct {
	Search *service.SearchService
	Logger *zap.SugaredLogger
}

// NewSearchHandler создаёт хендлер поиска
func NewSearchHandler(search *service.SearchService, logger *zap.SugaredLogger) *SearchHandler {
	return &SearchHandler{Search: search, Logger: logger}
}

// SearchRequest — точный поиск по нескольким именам.
type SearchRequest struct {
	Terms    []string `json:"terms"`
	Filename string   `json:"filename,omitempty"` // без .csv
}

// Exact — POST /search, точное совпадение имени с любым из terms.
func (h *SearchHandler) Exact(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	terms := req.Terms[:0]
	for _, t := range req.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		writeMessage(w, http.StatusBadRequest, "No search terms provided.")
		return
	}

	rows, err := h.Search.SearchExact(r.Context(), terms, strings.TrimSpace(req.Filename))
	if err != nil {
		writeError(w, h.Logger, "Search", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Substring — GET /search?q=...&filename=..., поиск по вхождению.
func (h *SearchHandler) Substring(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeMessage(w, http.StatusBadRequest, "No search query provided.")
		return
	}
	rows, err := h.Search.SearchSubstring(r.Context(), q, strings.TrimSpace(r.URL.Query().Get("filename")))
	if err != nil {
		writeError(w, h.Logger, "Search", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
