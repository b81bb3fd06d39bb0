package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/infomap/infomap/internal/auth"
	"github.com/infomap/infomap/internal/handler/dto"
	"github.com/infomap/infomap/internal/service"
)

// NewsGate answers news queries.
type NewsGate interface {
	GetNews(ctx context.Context, req service.NewsRequest) (*service.NewsResult, error)
}

// NewsHandler handles GET /news/{country}.
type NewsHandler struct {
	gate   NewsGate
	logger *slog.Logger
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(gate NewsGate, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{gate: gate, logger: logger}
}

// Get handles GET /news/{country}?time_filter=&topic=.
func (h *NewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	country, err := pathParam(r, "country")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_COUNTRY", "Invalid country name")
		return
	}
	query := r.URL.Query()

	res, err := h.gate.GetNews(r.Context(), service.NewsRequest{
		User:       auth.MustUserFromContext(r.Context()),
		Country:    country,
		TimeFilter: query.Get("time_filter"),
		Topic:      query.Get("topic"),
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNewsResponse(res))
}
