package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// UsageHandler handles usage record endpoints
type UsageHandler struct {
	usage  *service.UsageService
	logger *logger.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage *service.UsageService, log *logger.Logger) *UsageHandler {
	return &UsageHandler{
		usage:  usage,
		logger: log,
	}
}

// List lists usage records
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	q := r.URL.Query()
	p := httputil.ParsePagination(r, 50)

	records, total, err := h.usage.ListUsage(r.Context(), service.UsageQuery{
		Pharmacy:     q.Get("pharmacy"),
		MedicationID: q.Get("medication_id"),
		From:         q.Get("from"),
		To:           q.Get("to"),
		Pagination:   p,
	}, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, records, httputil.NewMeta(p, total))
}

// Create records usage
func (h *UsageHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.RecordUsageInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.usage.RecordUsage(r.Context(), req, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// Update replaces a usage record
func (h *UsageHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.UpdateUsageInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.usage.UpdateUsage(r.Context(), chi.URLParam(r, "id"), req, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Delete removes a usage record and restores its stock
func (h *UsageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	res, err := h.usage.DeleteUsage(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"id":                res.Record.ID,
		"restored_quantity": res.RestoredQuantity,
	})
}
