package inventory

import (
	"context"

	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// =====================================================
// Stock reads
// =====================================================

// ListStockItems returns all stock items.
func (s *Service) ListStockItems(ctx context.Context) ([]models.StockItem, error) {
	remoteErr := errOfflineMode
	if s.tryRemote() {
		items, err := s.remote.ListStockItems(ctx)
		if err == nil {
			s.cache.SetStockItems(items)
			return items, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	items, ok := s.cache.StockItems()
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("stock_items", remoteErr)
	return items, nil
}

// GetStockItem returns one stock item.
func (s *Service) GetStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	if uuid.IsTemporary(id) {
		item, ok := s.cache.StockItem(id)
		if !ok {
			return nil, notFound("stock item %s not found", id)
		}
		return &item, nil
	}

	remoteErr := errOfflineMode
	if s.tryRemote() {
		item, err := s.remote.GetStockItem(ctx, id)
		if err == nil {
			s.cache.PutStockItem(*item)
			return item, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	item, ok := s.cache.StockItem(id)
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("stock_items", remoteErr)
	return &item, nil
}

// ListLowStockItems returns items that are low or out of stock.
func (s *Service) ListLowStockItems(ctx context.Context) ([]models.StockItem, error) {
	remoteErr := errOfflineMode
	if s.tryRemote() {
		items, err := s.remote.ListLowStockItems(ctx)
		if err == nil {
			return items, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	items, ok := s.cache.StockItems()
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("stock_items", remoteErr)
	low := make([]models.StockItem, 0)
	for _, it := range items {
		if it.IsLow() {
			low = append(low, it)
		}
	}
	return low, nil
}

// =====================================================
// Stock mutations
// =====================================================

// CreateStockItem creates an item. Offline the returned item carries a
// temporary id until the create replays.
func (s *Service) CreateStockItem(ctx context.Context, item models.StockItem) (*models.StockItem, error) {
	if item.Name == "" || item.SKU == "" {
		return nil, invalid("stock item needs a name and a SKU")
	}
	if item.Quantity < 0 {
		return nil, invalid("quantity cannot be negative")
	}
	if item.Price.IsNegative() {
		return nil, invalid("price cannot be negative")
	}
	item.ID = ""

	if s.direct() {
		created, err := s.remote.CreateStockItem(ctx, item)
		if err == nil {
			s.cache.PutStockItem(*created)
			return created, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	item.CreatedAt, item.UpdatedAt = "", ""
	if item.Status != models.StockInactive {
		item.Status = s.status(item.Quantity)
	}
	tempID := uuid.NewTemp()
	if _, err := s.queue.Enqueue(queue.CreateStock{TempID: tempID, Item: item}); err != nil {
		return nil, err
	}
	item.ID = tempID
	s.cache.PutStockItem(item)

	logging.Info("stock item created offline", map[string]interface{}{"temp_id": tempID, "sku": item.SKU})
	return &item, nil
}

// UpdateStockItem replaces an item's descriptive fields. Quantity changes
// go through RecordMovement.
func (s *Service) UpdateStockItem(ctx context.Context, id string, item models.StockItem) (*models.StockItem, error) {
	if id == "" {
		return nil, invalid("stock item id is required")
	}
	if item.Price.IsNegative() {
		return nil, invalid("price cannot be negative")
	}
	item.ID = id

	if s.direct(id) {
		updated, err := s.remote.UpdateStockItem(ctx, id, item)
		if err == nil {
			s.cache.PutStockItem(*updated)
			return updated, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	if _, ok := s.cache.StockItem(id); !ok {
		return nil, notFound("stock item %s not found", id)
	}
	if _, err := s.queue.Enqueue(queue.UpdateStock{ID: id, Item: item}); err != nil {
		return nil, err
	}
	updated, _ := s.cache.UpdateStockItem(id, func(cached *models.StockItem) {
		cached.Name = item.Name
		cached.SKU = item.SKU
		cached.Price = item.Price
		if item.Status == models.StockInactive {
			cached.Status = models.StockInactive
		} else {
			cached.Status = s.status(cached.Quantity)
		}
	})
	return &updated, nil
}

// DeleteStockItem deletes an item.
func (s *Service) DeleteStockItem(ctx context.Context, id string) error {
	if id == "" {
		return invalid("stock item id is required")
	}

	if s.direct(id) {
		err := s.remote.DeleteStockItem(ctx, id)
		if err == nil {
			s.cache.RemoveStockItem(id)
			return nil
		}
		if !offlineFallback(err) {
			return err
		}
	}

	if _, err := s.queue.Enqueue(queue.DeleteStock{ID: id}); err != nil {
		return err
	}
	s.cache.RemoveStockItem(id)
	return nil
}

// RecordMovement records a stock movement and returns the item's new state.
// The item is nil when the server accepted the movement but its state could
// be neither fetched nor derived from the cache.
func (s *Service) RecordMovement(ctx context.Context, req models.StockMovementRequest) (*models.StockItem, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	if s.direct(req.StockItemID, req.LocationID) {
		err := s.remote.RecordMovement(ctx, req)
		if err == nil {
			return s.afterRemoteMovement(ctx, req), nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	cached, ok := s.cache.StockItem(req.StockItemID)
	if !ok {
		return nil, notFound("stock item %s not found", req.StockItemID)
	}
	quantity, err := applyMovement(cached.Quantity, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(queue.RecordMovement{Request: req}); err != nil {
		return nil, err
	}

	updated, _ := s.cache.UpdateStockItem(req.StockItemID, func(it *models.StockItem) {
		it.Quantity = quantity
		if it.Status != models.StockInactive {
			it.Status = s.status(quantity)
		}
	})
	if req.LocationID != "" {
		s.cache.AdjustInventory(req.LocationID, updated, quantity-cached.Quantity)
	}
	return &updated, nil
}

// afterRemoteMovement fetches the item the server just changed. When the
// fetch fails the movement is applied to the cached copy instead, and when
// there is no cached copy the state is unknown.
func (s *Service) afterRemoteMovement(ctx context.Context, req models.StockMovementRequest) *models.StockItem {
	if item, err := s.remote.GetStockItem(ctx, req.StockItemID); err == nil {
		if prev, ok := s.cache.StockItem(req.StockItemID); ok && req.LocationID != "" {
			s.cache.AdjustInventory(req.LocationID, *item, item.Quantity-prev.Quantity)
		}
		s.cache.PutStockItem(*item)
		return item
	}

	cached, ok := s.cache.StockItem(req.StockItemID)
	if !ok {
		logging.Warn("movement recorded but item state unknown", map[string]interface{}{
			"stock_item_id": req.StockItemID,
		})
		return nil
	}
	quantity, _ := applyMovement(cached.Quantity, req)
	updated, _ := s.cache.UpdateStockItem(req.StockItemID, func(it *models.StockItem) {
		it.Quantity = quantity
		if it.Status != models.StockInactive {
			it.Status = s.status(quantity)
		}
	})
	return &updated
}

func validateMovement(req models.StockMovementRequest) error {
	if req.StockItemID == "" {
		return invalid("stock item id is required")
	}
	if !req.Type.Valid() {
		return invalid("unknown movement type %q", req.Type)
	}
	if req.Quantity < 0 || (req.Quantity == 0 && req.Type != models.MovementAdjust) {
		return invalid("movement quantity must be positive")
	}
	return nil
}

// applyMovement returns the quantity after req, mirroring the server:
// IN adds, OUT subtracts when enough is available, ADJUST sets.
func applyMovement(current int, req models.StockMovementRequest) (int, error) {
	switch req.Type {
	case models.MovementIn:
		return current + req.Quantity, nil
	case models.MovementOut:
		if req.Quantity > current {
			return current, insufficient(current)
		}
		return current - req.Quantity, nil
	case models.MovementAdjust:
		return req.Quantity, nil
	}
	return current, invalid("unknown movement type %q", req.Type)
}
