package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbitroy/stockflow/backend/cmd/desktop/handlers"
)

// routes is everything the router dispatches to.
type routes struct {
	stock     *handlers.StockHandler
	sales     *handlers.SalesHandler
	locations *handlers.LocationHandler
	sync      *handlers.SyncHandler
	ws        http.Handler
	gatherer  prometheus.Gatherer
}

func newRouter(rt routes) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle("/ws", rt.ws)

	r.HandleFunc("/sync/status", rt.sync.GetStatus).Methods(http.MethodGet)
	r.HandleFunc("/sync/now", rt.sync.TriggerSync).Methods(http.MethodPost)
	r.HandleFunc("/sync/queue", rt.sync.ListQueue).Methods(http.MethodGet)
	r.HandleFunc("/sync/offline-mode", rt.sync.SetOfflineMode).Methods(http.MethodPut)

	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/stock", rt.stock.ListStockItems).Methods(http.MethodGet)
	api.HandleFunc("/stock", rt.stock.CreateStockItem).Methods(http.MethodPost)
	api.HandleFunc("/stock/low-stock", rt.stock.ListLowStockItems).Methods(http.MethodGet)
	api.HandleFunc("/stock/movement", rt.stock.RecordMovement).Methods(http.MethodPost)
	api.HandleFunc("/stock/{id}", rt.stock.GetStockItem).Methods(http.MethodGet)
	api.HandleFunc("/stock/{id}", rt.stock.UpdateStockItem).Methods(http.MethodPut)
	api.HandleFunc("/stock/{id}", rt.stock.DeleteStockItem).Methods(http.MethodDelete)

	api.HandleFunc("/sales", rt.sales.ListSales).Methods(http.MethodGet)
	api.HandleFunc("/sales", rt.sales.CreateSale).Methods(http.MethodPost)
	api.HandleFunc("/sales/{id}", rt.sales.GetSale).Methods(http.MethodGet)
	api.HandleFunc("/sales/{id}/status", rt.sales.UpdateSaleStatus).Methods(http.MethodPatch)

	api.HandleFunc("/locations", rt.locations.ListLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations", rt.locations.CreateLocation).Methods(http.MethodPost)
	api.HandleFunc("/locations/{id}", rt.locations.GetLocation).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}", rt.locations.UpdateLocation).Methods(http.MethodPut)
	api.HandleFunc("/locations/{id}", rt.locations.DeleteLocation).Methods(http.MethodDelete)
	api.HandleFunc("/locations/{id}/inventory", rt.locations.LocationInventory).Methods(http.MethodGet)

	api.HandleFunc("/transfers", rt.locations.TransferStock).Methods(http.MethodPost)
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"stockflow-desktop"}`))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
