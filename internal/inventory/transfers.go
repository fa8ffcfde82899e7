package inventory

import (
	"context"

	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
)

// TransferStock moves quantity of an item between two locations. Offline
// the cached source inventory is checked when there is one and both
// cached inventories are updated.
func (s *Service) TransferStock(ctx context.Context, req models.TransferRequest) (*models.StockTransfer, error) {
	if req.StockItemID == "" || req.SourceLocationID == "" || req.TargetLocationID == "" {
		return nil, invalid("transfer needs a stock item, a source and a target location")
	}
	if req.SourceLocationID == req.TargetLocationID {
		return nil, invalid("source and target location must differ")
	}
	if req.Quantity <= 0 {
		return nil, invalid("transfer quantity must be positive")
	}

	if s.direct(req.StockItemID, req.SourceLocationID, req.TargetLocationID) {
		transfer, err := s.remote.Transfer(ctx, req)
		if err == nil {
			s.moveCached(req)
			return transfer, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	if available, known := s.cache.InventoryQuantity(req.SourceLocationID, req.StockItemID); known && available < req.Quantity {
		return nil, insufficient(available)
	}
	if _, err := s.queue.Enqueue(queue.CreateTransfer{Request: req}); err != nil {
		return nil, err
	}
	s.moveCached(req)

	logging.Info("transfer recorded offline", map[string]interface{}{
		"stock_item_id": req.StockItemID,
		"source":        req.SourceLocationID,
		"target":        req.TargetLocationID,
		"quantity":      req.Quantity,
	})
	return provisionalTransfer(req), nil
}

func (s *Service) moveCached(req models.TransferRequest) {
	item, ok := s.cache.StockItem(req.StockItemID)
	if !ok {
		item = models.StockItem{ID: req.StockItemID}
	}
	s.cache.AdjustInventory(req.SourceLocationID, item, -req.Quantity)
	s.cache.AdjustInventory(req.TargetLocationID, item, req.Quantity)
}

func provisionalTransfer(req models.TransferRequest) *models.StockTransfer {
	movement := func(t models.MovementType, location string) models.StockMovement {
		return models.StockMovement{
			StockItemID: req.StockItemID,
			Quantity:    req.Quantity,
			Type:        t,
			Reference:   req.Reference,
			Notes:       req.Notes,
			LocationID:  location,
		}
	}
	return &models.StockTransfer{
		OutMovement: movement(models.MovementOut, req.SourceLocationID),
		InMovement:  movement(models.MovementIn, req.TargetLocationID),
		PendingSync: true,
	}
}
