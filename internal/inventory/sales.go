package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// SalesFilter narrows ListSales to sales created in [From, To].
// A zero bound is open.
type SalesFilter struct {
	From time.Time
	To   time.Time
}

func (f SalesFilter) match(sale models.Sale) bool {
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	created := sale.CreatedAtTime()
	if created.IsZero() {
		return false
	}
	if !f.From.IsZero() && created.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && created.After(f.To) {
		return false
	}
	return true
}

func (f SalesFilter) apply(sales []models.Sale) []models.Sale {
	out := make([]models.Sale, 0, len(sales))
	for _, sale := range sales {
		if f.match(sale) {
			out = append(out, sale)
		}
	}
	return out
}

// ListSales returns sales matching filter. The full remote list refreshes
// the cache before filtering.
func (s *Service) ListSales(ctx context.Context, filter SalesFilter) ([]models.Sale, error) {
	remoteErr := errOfflineMode
	if s.tryRemote() {
		sales, err := s.remote.ListSales(ctx)
		if err == nil {
			s.cache.SetSales(sales)
			return filter.apply(sales), nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	sales, ok := s.cache.Sales()
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("sales", remoteErr)
	return filter.apply(sales), nil
}

// GetSale returns one sale.
func (s *Service) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	if uuid.IsTemporary(id) {
		sale, ok := s.cache.Sale(id)
		if !ok {
			return nil, notFound("sale %s not found", id)
		}
		return &sale, nil
	}

	remoteErr := errOfflineMode
	if s.tryRemote() {
		sale, err := s.remote.GetSale(ctx, id)
		if err == nil {
			s.cache.PutSale(*sale)
			return sale, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	sale, ok := s.cache.Sale(id)
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("sales", remoteErr)
	return &sale, nil
}

// CreateSale records a sale. Offline the sale is priced from cached stock
// and its lines are taken out of the cached quantities.
func (s *Service) CreateSale(ctx context.Context, req models.CreateSaleRequest) (*models.Sale, error) {
	if len(req.Items) == 0 {
		return nil, invalid("sale must contain at least one item")
	}
	ids := []string{req.LocationID}
	for _, line := range req.Items {
		if line.StockItemID == "" {
			return nil, invalid("sale line needs a stock item id")
		}
		if line.Quantity <= 0 {
			return nil, invalid("sale line quantity must be positive")
		}
		ids = append(ids, line.StockItemID)
	}

	if s.direct(ids...) {
		sale, err := s.remote.CreateSale(ctx, req)
		if err == nil {
			s.cache.PutSale(*sale)
			s.refreshSold(ctx, *sale)
			return sale, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	sale, err := s.provisionalSale(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(queue.CreateSale{TempID: sale.ID, Request: req}); err != nil {
		return nil, err
	}
	s.cache.PutSale(sale)
	for _, line := range sale.Items {
		item, _ := s.cache.UpdateStockItem(line.StockItemID, func(it *models.StockItem) {
			it.Quantity -= line.Quantity
			if it.Quantity < 0 {
				it.Quantity = 0
			}
			if it.Status != models.StockInactive {
				it.Status = s.status(it.Quantity)
			}
		})
		if req.LocationID != "" {
			if item.ID == "" {
				item.ID = line.StockItemID
			}
			s.cache.AdjustInventory(req.LocationID, item, -line.Quantity)
		}
	}

	logging.Info("sale recorded offline", map[string]interface{}{
		"temp_id": sale.ID,
		"lines":   len(sale.Items),
		"total":   sale.Total.String(),
	})
	return &sale, nil
}

// provisionalSale builds the sale the server would return, using cached
// prices and quantities. Lines for items that are not cached get a zero price.
func (s *Service) provisionalSale(req models.CreateSaleRequest) (models.Sale, error) {
	now := s.timestamp()
	sale := models.Sale{
		ID:            uuid.NewTemp(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		LocationID:    req.LocationID,
		Status:        models.SalePending,
		Total:         decimal.Zero,
		Items:         make([]models.SaleItem, 0, len(req.Items)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.LocationID != "" {
		if loc, ok := s.cache.Location(req.LocationID); ok {
			sale.LocationName = loc.Name
		}
	}

	for _, line := range req.Items {
		price := decimal.Zero
		if item, ok := s.cache.StockItem(line.StockItemID); ok {
			price = item.Price
			available := item.Quantity
			if req.LocationID != "" {
				if qty, known := s.cache.InventoryQuantity(req.LocationID, item.ID); known {
					available = qty
				}
			}
			if available < line.Quantity {
				return models.Sale{}, insufficient(available)
			}
		}
		total := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sale.Items = append(sale.Items, models.SaleItem{
			StockItemID: line.StockItemID,
			Quantity:    line.Quantity,
			Price:       price,
			Total:       total,
		})
		sale.Total = sale.Total.Add(total)
	}
	return sale, nil
}

// refreshSold refetches the items a server-side sale changed. Failures
// leave the cached items as they were.
func (s *Service) refreshSold(ctx context.Context, sale models.Sale) {
	for _, line := range sale.Items {
		item, err := s.remote.GetStockItem(ctx, line.StockItemID)
		if err != nil {
			logging.Debug("refresh after sale failed", map[string]interface{}{
				"stock_item_id": line.StockItemID,
				"error":         err.Error(),
			})
			continue
		}
		s.cache.PutStockItem(*item)
	}
}

// UpdateSaleStatus moves a pending sale to status.
func (s *Service) UpdateSaleStatus(ctx context.Context, id string, status models.SaleStatus) (*models.Sale, error) {
	if id == "" {
		return nil, invalid("sale id is required")
	}
	if !status.Valid() {
		return nil, invalid("invalid sale status %q", status)
	}

	if s.direct(id) {
		sale, err := s.remote.UpdateSaleStatus(ctx, id, status)
		if err == nil {
			s.cache.PutSale(*sale)
			return sale, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	cached, ok := s.cache.Sale(id)
	if !ok {
		return nil, notFound("sale %s not found", id)
	}
	if cached.Status != models.SalePending && cached.Status != status {
		return nil, validation("sale %s is not in PENDING status", id)
	}
	if _, err := s.queue.Enqueue(queue.UpdateSaleStatus{ID: id, Status: status}); err != nil {
		return nil, err
	}
	updated, _ := s.cache.UpdateSale(id, func(sale *models.Sale) {
		sale.Status = status
		sale.UpdatedAt = s.timestamp()
	})
	return &updated, nil
}
