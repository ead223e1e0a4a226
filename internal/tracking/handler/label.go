package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/httputil"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// LabelHandler handles label detail and history endpoints
type LabelHandler struct {
	service *service.QueryService
	logger  *logger.Logger
}

// NewLabelHandler creates a new label handler
func NewLabelHandler(svc *service.QueryService, log *logger.Logger) *LabelHandler {
	return &LabelHandler{
		service: svc,
		logger:  log,
	}
}

// Get returns everything known about a label: reference record, current
// state, latest quality status and both ledgers
func (h *LabelHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.service.Details(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, details)
}

// Movements returns a label's movement ledger, oldest first
func (h *LabelHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, err := h.service.MovementHistory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, events)
}

// QualityHistory returns a label's quality ledger, newest first
func (h *LabelHandler) QualityHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, err := h.service.QualityHistory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, events)
}
