package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arbitroy/stockflow/backend/internal/inventory"
	"github.com/arbitroy/stockflow/backend/internal/models"
)

// StockHandler handles stock item operations.
type StockHandler struct {
	svc *inventory.Service
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(svc *inventory.Service) *StockHandler {
	return &StockHandler{svc: svc}
}

// ListStockItems handles GET /stock
func (h *StockHandler) ListStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListStockItems(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListLowStockItems handles GET /stock/low-stock
func (h *StockHandler) ListLowStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListLowStockItems(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetStockItem handles GET /stock/{id}
func (h *StockHandler) GetStockItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetStockItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateStockItem handles POST /stock
func (h *StockHandler) CreateStockItem(w http.ResponseWriter, r *http.Request) {
	var item models.StockItem
	if !decodeBody(w, r, &item) {
		return
	}

	created, err := h.svc.CreateStockItem(r.Context(), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateStockItem handles PUT /stock/{id}
func (h *StockHandler) UpdateStockItem(w http.ResponseWriter, r *http.Request) {
	var item models.StockItem
	if !decodeBody(w, r, &item) {
		return
	}

	updated, err := h.svc.UpdateStockItem(r.Context(), mux.Vars(r)["id"], item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteStockItem handles DELETE /stock/{id}
func (h *StockHandler) DeleteStockItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteStockItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordMovement handles POST /stock/movement
// Returns the item after the movement, or 202 when its new state is unknown.
func (h *StockHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var req models.StockMovementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := h.svc.RecordMovement(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"stockItemId": req.StockItemID,
			"refreshed":   false,
		})
		return
	}
	writeJSON(w, http.StatusOK, item)
}
