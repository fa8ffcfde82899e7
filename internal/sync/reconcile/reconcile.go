// Package reconcile swaps provisional ids for server ids once an offline
// CREATE has been replayed, and tracks which queued actions depend on a
// provisional id whose CREATE has not succeeded yet.
package reconcile

import (
	"github.com/arbitroy/stockflow/backend/internal/cache"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// Reconciler rewrites the queue and the cache after a CREATE replays.
type Reconciler struct {
	queue *queue.Queue
	cache *cache.Cache
}

// New creates a Reconciler.
func New(q *queue.Queue, c *cache.Cache) *Reconciler {
	return &Reconciler{queue: q, cache: c}
}

// StockCreated records that the stock item provisionally known as tempID
// now exists on the server as item.
func (r *Reconciler) StockCreated(tempID string, item models.StockItem) {
	if tempID == "" {
		r.cache.PutStockItem(item)
		return
	}
	r.cache.ReplaceStockItem(tempID, item)
	r.rewrite(models.EntityStock, tempID, item.ID)
}

// LocationCreated records that the location provisionally known as tempID
// now exists on the server as loc.
func (r *Reconciler) LocationCreated(tempID string, loc models.Location) {
	if tempID == "" {
		r.cache.PutLocation(loc)
		return
	}
	r.cache.ReplaceLocation(tempID, loc)
	r.rewrite(models.EntityLocation, tempID, loc.ID)
}

// SaleCreated records that the sale provisionally known as tempID now exists
// on the server as sale.
func (r *Reconciler) SaleCreated(tempID string, sale models.Sale) {
	if tempID == "" {
		r.cache.PutSale(sale)
		return
	}
	r.cache.ReplaceSale(tempID, sale)
	r.rewrite(models.EntitySale, tempID, sale.ID)
}

func (r *Reconciler) rewrite(entity models.EntityType, oldID, newID string) {
	if oldID == newID || newID == "" {
		return
	}
	n := r.queue.Rewrite(func(p queue.Payload) (queue.Payload, bool) {
		return Rename(p, entity, oldID, newID)
	})
	logging.Info("provisional id reconciled", map[string]interface{}{
		"entity":    entity,
		"temp_id":   oldID,
		"server_id": newID,
		"rewritten": n,
	})
}

// CreatedID returns the provisional id a CREATE payload introduces.
func CreatedID(p queue.Payload) (string, bool) {
	var id string
	switch v := p.(type) {
	case queue.CreateStock:
		id = v.TempID
	case queue.CreateSale:
		id = v.TempID
	case queue.CreateLocation:
		id = v.TempID
	}
	return id, uuid.IsTemporary(id)
}

// References lists the entity ids a payload depends on, excluding the id it
// creates.
func References(p queue.Payload) []string {
	switch v := p.(type) {
	case queue.UpdateStock:
		return []string{v.ID}
	case queue.DeleteStock:
		return []string{v.ID}
	case queue.RecordMovement:
		return nonEmpty(v.Request.StockItemID, v.Request.LocationID)
	case queue.CreateSale:
		refs := nonEmpty(v.Request.LocationID)
		for _, it := range v.Request.Items {
			refs = append(refs, nonEmpty(it.StockItemID)...)
		}
		return refs
	case queue.UpdateSaleStatus:
		return []string{v.ID}
	case queue.UpdateLocation:
		return []string{v.ID}
	case queue.DeleteLocation:
		return []string{v.ID}
	case queue.CreateTransfer:
		return nonEmpty(v.Request.StockItemID, v.Request.SourceLocationID, v.Request.TargetLocationID)
	}
	return nil
}

// Rename replaces references to oldID of the given entity kind inside p.
// It reports whether anything changed.
func Rename(p queue.Payload, entity models.EntityType, oldID, newID string) (queue.Payload, bool) {
	swap := func(id *string) bool {
		if *id == oldID {
			*id = newID
			return true
		}
		return false
	}

	switch entity {
	case models.EntityStock:
		switch v := p.(type) {
		case queue.UpdateStock:
			if swap(&v.ID) {
				v.Item.ID = newID
				return v, true
			}
		case queue.DeleteStock:
			if swap(&v.ID) {
				return v, true
			}
		case queue.RecordMovement:
			if swap(&v.Request.StockItemID) {
				return v, true
			}
		case queue.CreateTransfer:
			if swap(&v.Request.StockItemID) {
				return v, true
			}
		case queue.CreateSale:
			changed := false
			items := make([]models.SaleItemRequest, len(v.Request.Items))
			copy(items, v.Request.Items)
			for i := range items {
				if swap(&items[i].StockItemID) {
					changed = true
				}
			}
			if changed {
				v.Request.Items = items
				return v, true
			}
		}

	case models.EntityLocation:
		switch v := p.(type) {
		case queue.UpdateLocation:
			if swap(&v.ID) {
				v.Location.ID = newID
				return v, true
			}
		case queue.DeleteLocation:
			if swap(&v.ID) {
				return v, true
			}
		case queue.RecordMovement:
			if swap(&v.Request.LocationID) {
				return v, true
			}
		case queue.CreateSale:
			if swap(&v.Request.LocationID) {
				return v, true
			}
		case queue.CreateTransfer:
			src := swap(&v.Request.SourceLocationID)
			dst := swap(&v.Request.TargetLocationID)
			if src || dst {
				return v, true
			}
		}

	case models.EntitySale:
		if v, ok := p.(queue.UpdateSaleStatus); ok && swap(&v.ID) {
			return v, true
		}
	}
	return p, false
}

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Lineage tracks provisional ids whose CREATE failed during the current
// drain. Actions referring to them are held back until the CREATE succeeds.
type Lineage struct {
	blocked map[string]bool
}

// NewLineage creates an empty Lineage.
func NewLineage() *Lineage {
	return &Lineage{blocked: make(map[string]bool)}
}

// Block marks id as unavailable for the rest of the pass.
func (l *Lineage) Block(id string) {
	if id != "" {
		l.blocked[id] = true
	}
}

// Blocks reports whether p depends on a blocked id.
func (l *Lineage) Blocks(p queue.Payload) bool {
	for _, ref := range References(p) {
		if l.blocked[ref] {
			return true
		}
	}
	return false
}
