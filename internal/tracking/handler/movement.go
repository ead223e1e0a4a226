package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/httputil"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// MovementHandler handles the scan endpoints: put-away, pick, transfer
// and move-out
type MovementHandler struct {
	service *service.MovementService
	logger  *logger.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(svc *service.MovementService, log *logger.Logger) *MovementHandler {
	return &MovementHandler{
		service: svc,
		logger:  log,
	}
}

// PutAway records a put-away scan for a label
func (h *MovementHandler) PutAway(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "id")

	var req struct {
		Location   string           `json:"location" validate:"required"`
		Quantity   *decimal.Decimal `json:"quantity,omitempty"`
		Containers *int             `json:"containers,omitempty"`
		Reason     string           `json:"reason" validate:"required"`
		Note       *string          `json:"note,omitempty"`
		OccurredAt *time.Time       `json:"occurred_at,omitempty"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.PutAway(r.Context(), service.PutAwayInput{
		LabelID:    labelID,
		Location:   req.Location,
		Quantity:   req.Quantity,
		Containers: req.Containers,
		Reason:     req.Reason,
		Note:       req.Note,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if result.Warning != "" {
		httputil.JSONWithWarning(w, http.StatusOK, result, result.Warning)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Pick records a partial consumption at a location
func (h *MovementHandler) Pick(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "id")

	var req struct {
		Location   string           `json:"location" validate:"required"`
		Quantity   *decimal.Decimal `json:"quantity,omitempty"`
		Containers *int             `json:"containers,omitempty"`
		Reason     string           `json:"reason" validate:"required"`
		Note       *string          `json:"note,omitempty"`
		OccurredAt *time.Time       `json:"occurred_at,omitempty"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	state, err := h.service.Pick(r.Context(), service.PickInput{
		LabelID:    labelID,
		Location:   req.Location,
		Quantity:   req.Quantity,
		Containers: req.Containers,
		Reason:     req.Reason,
		Note:       req.Note,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, state)
}

// Transfer relocates a label to another location
func (h *MovementHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "id")

	var req struct {
		ToLocation string           `json:"to_location" validate:"required"`
		Quantity   *decimal.Decimal `json:"quantity,omitempty"`
		Containers *int             `json:"containers,omitempty"`
		Reason     string           `json:"reason" validate:"required"`
		Note       *string          `json:"note,omitempty"`
		OccurredAt *time.Time       `json:"occurred_at,omitempty"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	state, err := h.service.Transfer(r.Context(), service.TransferInput{
		LabelID:    labelID,
		ToLocation: req.ToLocation,
		Quantity:   req.Quantity,
		Containers: req.Containers,
		Reason:     req.Reason,
		Note:       req.Note,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, state)
}

// MoveOut removes a label from tracked inventory
func (h *MovementHandler) MoveOut(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "id")

	var req struct {
		Location   string     `json:"location,omitempty"`
		Reason     string     `json:"reason" validate:"required"`
		Note       *string    `json:"note,omitempty"`
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

	state, err := h.service.MoveOut(r.Context(), service.MoveOutInput{
		LabelID:    labelID,
		Location:   req.Location,
		Reason:     req.Reason,
		Note:       req.Note,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, state)
}
