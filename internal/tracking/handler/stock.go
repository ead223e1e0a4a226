package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/httputil"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// StockHandler handles stock listing endpoints
type StockHandler struct {
	service *service.QueryService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.QueryService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// AtLocation lists the labels currently at a location, ranked for
// retrieval. The policy query parameter selects fefo, fifo or manual.
func (h *StockHandler) AtLocation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	policy := r.URL.Query().Get("policy")

	rows, source, err := h.service.CurrentAtLocation(r.Context(), code, policy)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, rows, &httputil.Meta{
		Total:  int64(len(rows)),
		Source: source,
	})
}

// Global lists all labels in tracked inventory, optionally narrowed by
// the location hierarchy and material code
func (h *StockHandler) Global(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := &domain.StockFilter{
		Plant:        q.Get("plant"),
		SubPlant:     q.Get("sub_plant"),
		Department:   q.Get("department"),
		Area:         q.Get("area"),
		MaterialCode: q.Get("material_code"),
	}

	rows, source, err := h.service.GlobalCurrent(r.Context(), filter, q.Get("policy"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, rows, &httputil.Meta{
		Total:  int64(len(rows)),
		Source: source,
	})
}
