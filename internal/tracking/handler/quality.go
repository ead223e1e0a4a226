package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/httputil"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// QualityHandler handles quality-status transition endpoints
type QualityHandler struct {
	service *service.QualityService
	logger  *logger.Logger
}

// NewQualityHandler creates a new quality handler
func NewQualityHandler(svc *service.QualityService, log *logger.Logger) *QualityHandler {
	return &QualityHandler{
		service: svc,
		logger:  log,
	}
}

// SetStatus appends a quality-status transition for a label
func (h *QualityHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "id")

	var req struct {
		Status     string     `json:"status" validate:"required"`
		Reason     string     `json:"reason" validate:"required"`
		OccurredAt *time.Time `json:"occurred_at,omitempty"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	event, err := h.service.SetStatus(r.Context(), service.SetStatusInput{
		LabelID:    labelID,
		Status:     domain.QualityStatus(req.Status),
		Reason:     req.Reason,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, event)
}
