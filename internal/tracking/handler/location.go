package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/httputil"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// LocationHandler handles location master endpoints
type LocationHandler struct {
	service *service.QueryService
	logger  *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc *service.QueryService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		service: svc,
		logger:  log,
	}
}

// List lists locations, optionally narrowed by the hierarchy filters
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := &domain.LocationFilter{
		Plant:      q.Get("plant"),
		SubPlant:   q.Get("sub_plant"),
		Department: q.Get("department"),
		Area:       q.Get("area"),
	}

	locations, err := h.service.ListLocations(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, locations)
}

// Get gets a location by code
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	location, err := h.service.GetLocation(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, location)
}
