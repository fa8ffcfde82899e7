package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arbitroy/stockflow/backend/internal/inventory"
	"github.com/arbitroy/stockflow/backend/internal/models"
)

// LocationHandler handles locations and transfers between them.
type LocationHandler struct {
	svc *inventory.Service
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(svc *inventory.Service) *LocationHandler {
	return &LocationHandler{svc: svc}
}

// ListLocations handles GET /locations
func (h *LocationHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// GetLocation handles GET /locations/{id}
func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.svc.GetLocation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// LocationInventory handles GET /locations/{id}/inventory
func (h *LocationHandler) LocationInventory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.LocationInventory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// CreateLocation handles POST /locations
func (h *LocationHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if !decodeBody(w, r, &loc) {
		return
	}

	created, err := h.svc.CreateLocation(r.Context(), loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateLocation handles PUT /locations/{id}
func (h *LocationHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if !decodeBody(w, r, &loc) {
		return
	}

	updated, err := h.svc.UpdateLocation(r.Context(), mux.Vars(r)["id"], loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteLocation handles DELETE /locations/{id}
func (h *LocationHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLocation(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferStock handles POST /transfers
func (h *LocationHandler) TransferStock(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	transfer, err := h.svc.TransferStock(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if transfer.PendingSync {
		status = http.StatusAccepted
	}
	writeJSON(w, status, transfer)
}
