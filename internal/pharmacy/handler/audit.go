package handler

import (
	"net/http"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
)

// AuditHandler serves the audit trail
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List lists audit entries
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	q := r.URL.Query()
	p := httputil.ParsePagination(r, 50)

	entries, total, err := h.audit.List(r.Context(), service.AuditQuery{
		Entity:     q.Get("entity"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
		Pagination: p,
	}, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, httputil.NewMeta(p, total))
}
