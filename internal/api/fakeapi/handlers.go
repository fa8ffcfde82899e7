package fakeapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// =====================================================
// Stock
// =====================================================

func (s *Server) handleListStock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.listStock())
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	low := []models.StockItem{}
	for _, item := range s.listStock() {
		if item.IsLow() {
			low = append(low, item)
		}
	}
	writeJSON(w, http.StatusOK, low)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.stock[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Stock item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func validStockItem(item models.StockItem) string {
	switch {
	case item.Name == "":
		return "Name is required"
	case item.SKU == "":
		return "SKU is required"
	case item.Price.IsNegative():
		return "Price must not be negative"
	case item.Quantity < 0:
		return "Quantity must not be negative"
	}
	return ""
}

func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var item models.StockItem
	if !decode(w, r, &item) {
		return
	}
	if msg := validStockItem(item); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stock {
		if existing.SKU == item.SKU {
			writeError(w, http.StatusConflict, "SKU already exists")
			return
		}
	}
	item.ID = ""
	item.CreatedAt = ""
	writeJSON(w, http.StatusOK, s.putStock(item))
}

// handleUpdateStock changes descriptive fields only; quantity moves through movements.
func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var patch models.StockItem
	if !decode(w, r, &patch) {
		return
	}
	if msg := validStockItem(patch); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.stock[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Stock item not found")
		return
	}
	updated := *existing
	updated.Name = patch.Name
	updated.SKU = patch.SKU
	updated.Price = patch.Price
	if patch.Status == models.StockInactive {
		updated.Status = models.StockInactive
	} else if updated.Status == models.StockInactive {
		updated.Status = models.StockActive
	}
	writeJSON(w, http.StatusOK, s.putStock(updated))
}

func (s *Server) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	if _, ok := s.stock[id]; !ok {
		writeError(w, http.StatusNotFound, "Stock item not found")
		return
	}
	delete(s.stock, id)
	s.stockOrder = removeID(s.stockOrder, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMovement(w http.ResponseWriter, r *http.Request) {
	var req models.StockMovementRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Type.Valid() || req.Quantity < 0 || (req.Quantity == 0 && req.Type != models.MovementAdjust) {
		writeError(w, http.StatusBadRequest, "Invalid movement")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.stock[req.StockItemID]
	if !ok {
		writeError(w, http.StatusNotFound, "Stock item not found")
		return
	}

	updated := *item
	switch req.Type {
	case models.MovementIn:
		updated.Quantity += req.Quantity
	case models.MovementOut:
		if updated.Quantity < req.Quantity {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Insufficient stock. Available: %d", updated.Quantity))
			return
		}
		updated.Quantity -= req.Quantity
	case models.MovementAdjust:
		updated.Quantity = req.Quantity
	}
	s.putStock(updated)
	w.WriteHeader(http.StatusOK)
}

// =====================================================
// Sales
// =====================================================

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Sale, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		out = append(out, *s.sales[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found")
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSaleRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "Sale must contain at least one item")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var loc *models.Location
	if req.LocationID != "" {
		l, ok := s.locations[req.LocationID]
		if !ok {
			writeError(w, http.StatusNotFound, "Location not found")
			return
		}
		loc = l
	}

	// Validate every line before touching stock so a rejected sale changes nothing.
	for _, line := range req.Items {
		item, ok := s.stock[line.StockItemID]
		if !ok {
			writeError(w, http.StatusNotFound, "Stock item not found")
			return
		}
		if line.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "Quantity must be positive")
			return
		}
		available := item.Quantity
		if loc != nil {
			available = s.locStock[loc.ID][item.ID]
		}
		if available < line.Quantity {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Insufficient stock for item: %s. Available: %d", item.Name, available))
			return
		}
	}

	s.saleSeq++
	sale := models.Sale{
		ID:            uuid.New(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Reference:     fmt.Sprintf("SALE-%05d", s.saleSeq),
		Status:        models.SalePending,
		Total:         decimal.Zero,
		CreatedAt:     s.stamp(),
		UpdatedAt:     s.stamp(),
	}
	if loc != nil {
		sale.LocationID = loc.ID
		sale.LocationName = loc.Name
	}

	for _, line := range req.Items {
		item := *s.stock[line.StockItemID]
		if loc != nil {
			s.locStock[loc.ID][item.ID] -= line.Quantity
		}
		item.Quantity -= line.Quantity
		if item.Quantity < 0 {
			item.Quantity = 0
		}
		s.putStock(item)

		total := lineTotal(item.Price, line.Quantity)
		sale.Items = append(sale.Items, models.SaleItem{
			ID:          uuid.New(),
			StockItemID: item.ID,
			Quantity:    line.Quantity,
			Price:       item.Price,
			Total:       total,
		})
		sale.Total = sale.Total.Add(total)
	}

	s.sales[sale.ID] = &sale
	s.saleOrder = append(s.saleOrder, sale.ID)
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleSaleStatus(w http.ResponseWriter, r *http.Request) {
	var body models.SaleStatusUpdate
	if !decode(w, r, &body) {
		return
	}
	if !body.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid sale status")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found")
		return
	}
	if sale.Status != models.SalePending && sale.Status != body.Status {
		writeError(w, http.StatusConflict, "Sale is not in PENDING status")
		return
	}
	sale.Status = body.Status
	sale.UpdatedAt = s.stamp()
	writeJSON(w, http.StatusOK, sale)
}

// =====================================================
// Locations
// =====================================================

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.listLocations())
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Location not found")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func validLocation(loc models.Location) string {
	if loc.Name == "" {
		return "Name is required"
	}
	if loc.Type != models.LocationWarehouse && loc.Type != models.LocationStore {
		return "Type must be WAREHOUSE or STORE"
	}
	return ""
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if !decode(w, r, &loc) {
		return
	}
	if msg := validLocation(loc); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loc.ID = ""
	loc.CreatedAt = ""
	writeJSON(w, http.StatusOK, s.putLocation(loc))
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var patch models.Location
	if !decode(w, r, &patch) {
		return
	}
	if msg := validLocation(patch); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.locations[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Location not found")
		return
	}
	updated := *existing
	updated.Name = patch.Name
	updated.Type = patch.Type
	writeJSON(w, http.StatusOK, s.putLocation(updated))
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	if _, ok := s.locations[id]; !ok {
		writeError(w, http.StatusNotFound, "Location not found")
		return
	}
	delete(s.locations, id)
	delete(s.locStock, id)
	s.locOrder = removeID(s.locOrder, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocationInventory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	if _, ok := s.locations[id]; !ok {
		writeError(w, http.StatusNotFound, "Location not found")
		return
	}
	rows := []models.LocationInventory{}
	for _, itemID := range s.stockOrder {
		qty, ok := s.locStock[id][itemID]
		if !ok {
			continue
		}
		rows = append(rows, models.LocationInventory{
			StockItem:  *s.stock[itemID],
			Quantity:   qty,
			LocationID: id,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

// =====================================================
// Transfers
// =====================================================

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity <= 0 || req.SourceLocationID == req.TargetLocationID {
		writeError(w, http.StatusBadRequest, "Invalid transfer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[req.StockItemID]; !ok {
		writeError(w, http.StatusNotFound, "Stock item not found")
		return
	}
	for _, id := range []string{req.SourceLocationID, req.TargetLocationID} {
		if _, ok := s.locations[id]; !ok {
			writeError(w, http.StatusNotFound, "Location not found")
			return
		}
	}
	available := s.locStock[req.SourceLocationID][req.StockItemID]
	if available < req.Quantity {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Insufficient stock at source location. Available: %d", available))
		return
	}

	if s.locStock[req.TargetLocationID] == nil {
		s.locStock[req.TargetLocationID] = make(map[string]int)
	}
	s.locStock[req.SourceLocationID][req.StockItemID] -= req.Quantity
	s.locStock[req.TargetLocationID][req.StockItemID] += req.Quantity

	now := s.stamp()
	movement := func(t models.MovementType, loc string) models.StockMovement {
		return models.StockMovement{
			ID:          uuid.New(),
			StockItemID: req.StockItemID,
			Quantity:    req.Quantity,
			Type:        t,
			Reference:   req.Reference,
			Notes:       req.Notes,
			LocationID:  loc,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	writeJSON(w, http.StatusOK, models.StockTransfer{
		OutMovement: movement(models.MovementOut, req.SourceLocationID),
		InMovement:  movement(models.MovementIn, req.TargetLocationID),
	})
}
