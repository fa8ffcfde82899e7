// Package fakeapi is an in-memory stand-in for the remote inventory API.
// It serves the same routes under /api, mirrors the server's stock rules,
// records every call, and can inject failures or drop connections.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// Call is one request received by the server.
type Call struct {
	Method string
	Path   string
	Body   []byte
}

type failure struct {
	method    string
	prefix    string
	status    int
	remaining int
}

// Server holds the fake inventory.
type Server struct {
	mu sync.Mutex

	stock      map[string]*models.StockItem
	stockOrder []string
	locations  map[string]*models.Location
	locOrder   []string
	locStock   map[string]map[string]int // location id -> stock item id -> quantity
	sales      map[string]*models.Sale
	saleOrder  []string
	saleSeq    int

	calls       []Call
	failures    []*failure
	unreachable bool
	threshold   int
	now         func() time.Time

	router *mux.Router
}

// New creates an empty server.
func New() *Server {
	s := &Server{
		stock:     make(map[string]*models.StockItem),
		locations: make(map[string]*models.Location),
		locStock:  make(map[string]map[string]int),
		sales:     make(map[string]*models.Sale),
		threshold: models.DefaultLowStockThreshold,
		now:       time.Now,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.intercept)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/stock", s.handleListStock).Methods(http.MethodGet)
	api.HandleFunc("/stock", s.handleCreateStock).Methods(http.MethodPost)
	api.HandleFunc("/stock/low-stock", s.handleLowStock).Methods(http.MethodGet)
	api.HandleFunc("/stock/movement", s.handleMovement).Methods(http.MethodPost)
	api.HandleFunc("/stock/{id}", s.handleGetStock).Methods(http.MethodGet)
	api.HandleFunc("/stock/{id}", s.handleUpdateStock).Methods(http.MethodPut)
	api.HandleFunc("/stock/{id}", s.handleDeleteStock).Methods(http.MethodDelete)

	api.HandleFunc("/sales", s.handleListSales).Methods(http.MethodGet)
	api.HandleFunc("/sales", s.handleCreateSale).Methods(http.MethodPost)
	api.HandleFunc("/sales/{id}", s.handleGetSale).Methods(http.MethodGet)
	api.HandleFunc("/sales/{id}/status", s.handleSaleStatus).Methods(http.MethodPatch)

	api.HandleFunc("/locations", s.handleListLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations", s.handleCreateLocation).Methods(http.MethodPost)
	api.HandleFunc("/locations/{id}", s.handleGetLocation).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}", s.handleUpdateLocation).Methods(http.MethodPut)
	api.HandleFunc("/locations/{id}", s.handleDeleteLocation).Methods(http.MethodDelete)
	api.HandleFunc("/locations/{id}/inventory", s.handleLocationInventory).Methods(http.MethodGet)

	api.HandleFunc("/transfers", s.handleTransfer).Methods(http.MethodPost)
	return r
}

// intercept records the call, then applies unreachability and injected failures.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		unreachable := s.unreachable
		status := 0
		if !unreachable {
			s.calls = append(s.calls, Call{Method: r.Method, Path: path, Body: body})
			status = s.takeFailure(r.Method, path)
		}
		s.mu.Unlock()

		if unreachable {
			dropConnection(w)
			return
		}
		if status > 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) takeFailure(method, path string) int {
	for i, f := range s.failures {
		if f.method != method || !strings.HasPrefix(path, f.prefix) {
			continue
		}
		f.remaining--
		if f.remaining <= 0 {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
		}
		return f.status
	}
	return 0
}

// dropConnection closes the TCP connection without answering.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "unreachable", http.StatusBadGateway)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}

// =====================================================
// Test controls
// =====================================================

// FailNext makes the next times requests matching method and path prefix
// (relative to /api) answer with status.
func (s *Server) FailNext(method, pathPrefix string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{method: method, prefix: pathPrefix, status: status, remaining: times})
}

// SetUnreachable makes every request fail at the transport level.
func (s *Server) SetUnreachable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreachable = down
}

// Calls returns the recorded calls in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns recorded calls matching method, excluding health probes.
func (s *Server) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path != "/health" {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// SeedStock adds items, assigning ids when missing, and returns them.
func (s *Server) SeedStock(items ...models.StockItem) []models.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StockItem, 0, len(items))
	for _, item := range items {
		out = append(out, *s.putStock(item))
	}
	return out
}

// SeedLocation adds locations, assigning ids when missing, and returns them.
func (s *Server) SeedLocation(locs ...models.Location) []models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, *s.putLocation(loc))
	}
	return out
}

// SetLocationStock sets the quantity of an item held at a location.
func (s *Server) SetLocationStock(locationID, stockItemID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locStock[locationID] == nil {
		s.locStock[locationID] = make(map[string]int)
	}
	s.locStock[locationID][stockItemID] = qty
}

// Stock returns a copy of one item.
func (s *Server) Stock(id string) (models.StockItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.stock[id]
	if !ok {
		return models.StockItem{}, false
	}
	return *item, true
}

// StockItems returns all items in creation order.
func (s *Server) StockItems() []models.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listStock()
}

// Sales returns all sales in creation order.
func (s *Server) Sales() []models.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Sale, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		out = append(out, *s.sales[id])
	}
	return out
}

// Locations returns all locations in creation order.
func (s *Server) Locations() []models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocations()
}

// =====================================================
// Helpers
// =====================================================

func (s *Server) stamp() string {
	return models.FormatTime(s.now())
}

func (s *Server) putStock(item models.StockItem) *models.StockItem {
	if item.ID == "" {
		item.ID = uuid.New()
	}
	if item.CreatedAt == "" {
		item.CreatedAt = s.stamp()
	}
	item.UpdatedAt = s.stamp()
	if item.Status != models.StockInactive {
		item.Status = models.DeriveStatus(item.Quantity, s.threshold)
	}
	if _, exists := s.stock[item.ID]; !exists {
		s.stockOrder = append(s.stockOrder, item.ID)
	}
	s.stock[item.ID] = &item
	return &item
}

func (s *Server) putLocation(loc models.Location) *models.Location {
	if loc.ID == "" {
		loc.ID = uuid.New()
	}
	if loc.CreatedAt == "" {
		loc.CreatedAt = s.stamp()
	}
	loc.UpdatedAt = s.stamp()
	if _, exists := s.locations[loc.ID]; !exists {
		s.locOrder = append(s.locOrder, loc.ID)
	}
	s.locations[loc.ID] = &loc
	return &loc
}

func (s *Server) listStock() []models.StockItem {
	out := make([]models.StockItem, 0, len(s.stockOrder))
	for _, id := range s.stockOrder {
		out = append(out, *s.stock[id])
	}
	return out
}

func (s *Server) listLocations() []models.Location {
	out := make([]models.Location, 0, len(s.locOrder))
	for _, id := range s.locOrder {
		out = append(out, *s.locations[id])
	}
	return out
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"status":  status,
		"error":   http.StatusText(status),
		"message": message,
	})
}

func decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
