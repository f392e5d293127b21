package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// Display names used by the two-field stock body
const (
	legacyMyceliumName = "Mycelium Pharmacy"
	legacyAngelName    = "Angel Pharmacy"
)

// MedicationHandler handles medication stock endpoints
type MedicationHandler struct {
	stock  *service.StockService
	logger *logger.Logger
}

// NewMedicationHandler creates a new medication handler
func NewMedicationHandler(stock *service.StockService, log *logger.Logger) *MedicationHandler {
	return &MedicationHandler{
		stock:  stock,
		logger: log,
	}
}

// List lists medications with their stock levels
func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	meds, err := h.stock.ListStock(r.Context(), r.URL.Query().Get("pharmacy"), a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, meds)
}

// AddStock records a delivery
func (h *MedicationHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.AddStockInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	req.MedicationID = chi.URLParam(r, "id")

	inv, err := h.stock.AddStock(r.Context(), req, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// setStockRequest accepts either a list of levels or the two-field form
type setStockRequest struct {
	Levels        []service.StockLevel `json:"levels"`
	MyceliumStock *int                 `json:"myceliumStock"`
	AngelStock    *int                 `json:"angelStock"`
}

func (req setStockRequest) input() service.SetStockInput {
	if len(req.Levels) > 0 {
		return service.SetStockInput{Levels: req.Levels}
	}
	var levels []service.StockLevel
	if req.MyceliumStock != nil {
		levels = append(levels, service.StockLevel{Pharmacy: legacyMyceliumName, Quantity: *req.MyceliumStock})
	}
	if req.AngelStock != nil {
		levels = append(levels, service.StockLevel{Pharmacy: legacyAngelName, Quantity: *req.AngelStock})
	}
	return service.SetStockInput{Levels: levels}
}

// SetStock overwrites stock levels
func (h *MedicationHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req setStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rows, err := h.stock.SetStockLevels(r.Context(), chi.URLParam(r, "id"), req.input(), a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// ResetInventory zeroes every stock level
func (h *MedicationHandler) ResetInventory(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	n, err := h.stock.ResetAll(r.Context(), a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"rows_reset": n})
}
