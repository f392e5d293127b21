package handler

import (
	"net/http"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	reports *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  log,
	}
}

// Stats returns dashboard statistics
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	stats, err := h.reports.Stats(r.Context(), r.URL.Query().Get("pharmacy"), a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

// UsageSummary returns usage totals by pharmacy and company
func (h *ReportHandler) UsageSummary(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	q := r.URL.Query()
	summary, err := h.reports.UsageSummary(r.Context(), service.SummaryQuery{
		Pharmacy: q.Get("pharmacy"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}
