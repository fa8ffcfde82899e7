// Package handlers tests for inventory REST endpoints.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/arbitroy/stockflow/backend/internal/api"
	"github.com/arbitroy/stockflow/backend/internal/api/fakeapi"
	"github.com/arbitroy/stockflow/backend/internal/cache"
	"github.com/arbitroy/stockflow/backend/internal/connection"
	"github.com/arbitroy/stockflow/backend/internal/db"
	"github.com/arbitroy/stockflow/backend/internal/inventory"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
)

// setupInventory wires an inventory service against a fake remote API.
func setupInventory(t *testing.T) (*inventory.Service, *fakeapi.Server, *queue.Queue) {
	remote := fakeapi.New()
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	store := db.NewMemoryStore()
	monitor := connection.NewMonitor(connection.Config{HealthURL: srv.URL + "/api/health"})
	client := api.NewClient(api.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second, Observer: monitor})
	q := queue.New(store, queue.Options{})
	svc := inventory.NewService(inventory.Config{
		Remote:     client,
		Cache:      cache.New(store),
		Queue:      q,
		Connection: monitor,
	})
	if !monitor.CheckConnection(context.Background()) {
		t.Fatal("fake API should be reachable")
	}
	return svc, remote, q
}

func withID(req *http.Request, id string) *http.Request {
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestStockHandler_ListStockItems(t *testing.T) {
	svc, remote, _ := setupInventory(t)
	remote.SeedStock(models.StockItem{Name: "Widget", SKU: "WG", Quantity: 3})
	handler := NewStockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/stock", nil)
	w := httptest.NewRecorder()
	handler.ListStockItems(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var items []models.StockItem
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(items) != 1 || items[0].Status != models.StockLow {
		t.Errorf("Unexpected items %+v", items)
	}
}

func TestStockHandler_CreateStockItem_InvalidBody(t *testing.T) {
	svc, _, _ := setupInventory(t)
	handler := NewStockHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/stock", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	handler.CreateStockItem(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestStockHandler_RecordMovement_Insufficient(t *testing.T) {
	svc, remote, q := setupInventory(t)
	item := remote.SeedStock(models.StockItem{Name: "Widget", SKU: "WG", Quantity: 3})[0]
	handler := NewStockHandler(svc)

	body, _ := json.Marshal(models.StockMovementRequest{StockItemID: item.ID, Type: models.MovementOut, Quantity: 5})
	req := httptest.NewRequest(http.MethodPost, "/api/stock/movement", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.RecordMovement(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 from the server's validation, got %d", w.Code)
	}
	if q.Size() != 0 {
		t.Errorf("Rejected movement should not be queued, got %d", q.Size())
	}
}

func TestStockHandler_RecordMovement_StateUnknown(t *testing.T) {
	svc, remote, _ := setupInventory(t)
	item := remote.SeedStock(models.StockItem{Name: "Widget", SKU: "WG", Quantity: 3})[0]
	remote.FailNext(http.MethodGet, "/stock/"+item.ID, http.StatusInternalServerError, 1)
	handler := NewStockHandler(svc)

	body, _ := json.Marshal(models.StockMovementRequest{StockItemID: item.ID, Type: models.MovementIn, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/stock/movement", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.RecordMovement(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["stockItemId"] != item.ID || response["refreshed"] != false {
		t.Errorf("Unexpected response %v", response)
	}
}

func TestStockHandler_DeleteStockItem(t *testing.T) {
	svc, remote, _ := setupInventory(t)
	item := remote.SeedStock(models.StockItem{Name: "Widget", SKU: "WG", Quantity: 3})[0]
	handler := NewStockHandler(svc)

	req := withID(httptest.NewRequest(http.MethodDelete, "/api/stock/"+item.ID, nil), item.ID)
	w := httptest.NewRecorder()
	handler.DeleteStockItem(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	if _, ok := remote.Stock(item.ID); ok {
		t.Error("Item should be gone from the server")
	}
}

func TestSalesHandler_ListSales_BadDate(t *testing.T) {
	svc, _, _ := setupInventory(t)
	handler := NewSalesHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/sales?from=yesterday", nil)
	w := httptest.NewRecorder()
	handler.ListSales(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestLocationHandler_TransferStock_Offline(t *testing.T) {
	svc, remote, q := setupInventory(t)
	remote.SetUnreachable(true)
	handler := NewLocationHandler(svc)

	body, _ := json.Marshal(models.TransferRequest{
		StockItemID: "item-1", SourceLocationID: "a", TargetLocationID: "b", Quantity: 2,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transfers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.TransferStock(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d. Body: %s", w.Code, w.Body.String())
	}
	if q.Size() != 1 {
		t.Errorf("Expected the transfer to be queued, got %d", q.Size())
	}
}

func TestLocationHandler_ListLocations_Defaults(t *testing.T) {
	svc, remote, _ := setupInventory(t)
	remote.SetUnreachable(true)
	handler := NewLocationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/locations", nil)
	w := httptest.NewRecorder()
	handler.ListLocations(w, req)

	var locs []models.Location
	json.NewDecoder(w.Body).Decode(&locs)
	if len(locs) != 2 || locs[0].ID != inventory.DefaultWarehouseID {
		t.Errorf("Expected the default locations, got %+v", locs)
	}
}
