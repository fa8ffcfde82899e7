package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arbitroy/stockflow/backend/internal/inventory"
	"github.com/arbitroy/stockflow/backend/internal/models"
)

// SalesHandler handles sale operations.
type SalesHandler struct {
	svc *inventory.Service
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(svc *inventory.Service) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// ListSales handles GET /sales?from=&to=
// Bounds are dates or RFC 3339 timestamps; a bare "to" date includes the whole day.
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	var filter inventory.SalesFilter
	q := r.URL.Query()
	if from := q.Get("from"); from != "" {
		if filter.From = models.ParseTime(from); filter.From.IsZero() {
			http.Error(w, "Invalid from date", http.StatusBadRequest)
			return
		}
	}
	if to := q.Get("to"); to != "" {
		if filter.To = models.ParseTime(to); filter.To.IsZero() {
			http.Error(w, "Invalid to date", http.StatusBadRequest)
			return
		}
		if len(to) == len("2006-01-02") {
			filter.To = filter.To.AddDate(0, 0, 1).Add(-1)
		}
	}

	sales, err := h.svc.ListSales(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

// GetSale handles GET /sales/{id}
func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.svc.GetSale(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// CreateSale handles POST /sales
func (h *SalesHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sale, err := h.svc.CreateSale(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

// UpdateSaleStatus handles PATCH /sales/{id}/status
func (h *SalesHandler) UpdateSaleStatus(w http.ResponseWriter, r *http.Request) {
	var body models.SaleStatusUpdate
	if !decodeBody(w, r, &body) {
		return
	}

	sale, err := h.svc.UpdateSaleStatus(r.Context(), mux.Vars(r)["id"], body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}
