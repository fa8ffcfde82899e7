// Package cache keeps the last-known server view of each collection in the
// durable store so reads can be served while offline.
package cache

import (
	"strings"
	"sync"

	"github.com/arbitroy/stockflow/backend/internal/db"
	"github.com/arbitroy/stockflow/backend/internal/models"
)

// Store keys.
const (
	KeyStockItems   = "stock_items"
	KeyLocations    = "locations"
	KeySales        = "sales"
	InventoryPrefix = "inventory_"
)

// InventoryKey returns the store key of a location's inventory snapshot.
func InventoryKey(locationID string) string {
	return InventoryPrefix + locationID
}

// Cache is a typed view over the entity snapshots held in a db.Store.
// Read-modify-write updates are serialized.
type Cache struct {
	store db.Store
	mu    sync.Mutex
}

// New creates a Cache over store.
func New(store db.Store) *Cache {
	return &Cache{store: store}
}

// Seed writes an empty stock list when none has ever been cached.
func (c *Cache) Seed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.store.Has(KeyStockItems) {
		c.store.Save(KeyStockItems, []models.StockItem{})
	}
}

// =====================================================
// Stock items
// =====================================================

// StockItems returns the cached stock list.
func (c *Cache) StockItems() ([]models.StockItem, bool) {
	return db.LoadAs[[]models.StockItem](c.store, KeyStockItems)
}

// SetStockItems overwrites the cached stock list.
func (c *Cache) SetStockItems(items []models.StockItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []models.StockItem{}
	}
	c.store.Save(KeyStockItems, items)
}

// StockItem finds a cached stock item by id.
func (c *Cache) StockItem(id string) (models.StockItem, bool) {
	items, _ := c.StockItems()
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.StockItem{}, false
}

// PutStockItem inserts or replaces item by id.
func (c *Cache) PutStockItem(item models.StockItem) {
	c.ReplaceStockItem(item.ID, item)
}

// ReplaceStockItem replaces the item cached under oldID with item, appending
// it when oldID is not cached. Inventory rows and sale lines referring to
// oldID are rewritten to item.ID.
func (c *Cache) ReplaceStockItem(oldID string, item models.StockItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, _ := c.StockItems()
	items = replaceOrAppend(items, func(it models.StockItem) bool { return it.ID == oldID }, item)
	c.store.Save(KeyStockItems, items)

	if oldID == item.ID {
		return
	}
	for _, key := range c.store.Keys(InventoryPrefix) {
		rows, ok := db.LoadAs[[]models.LocationInventory](c.store, key)
		if !ok {
			continue
		}
		changed := false
		for i := range rows {
			if rows[i].StockItem.ID == oldID {
				rows[i].StockItem.ID = item.ID
				changed = true
			}
		}
		if changed {
			c.store.Save(key, rows)
		}
	}
	if sales, ok := c.Sales(); ok {
		changed := false
		for i := range sales {
			for j := range sales[i].Items {
				if sales[i].Items[j].StockItemID == oldID {
					sales[i].Items[j].StockItemID = item.ID
					changed = true
				}
			}
		}
		if changed {
			c.store.Save(KeySales, sales)
		}
	}
}

// UpdateStockItem applies fn to the cached item with id and returns the
// updated item. It reports false when the item is not cached.
func (c *Cache) UpdateStockItem(id string, fn func(*models.StockItem)) (models.StockItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, _ := c.StockItems()
	for i := range items {
		if items[i].ID == id {
			fn(&items[i])
			c.store.Save(KeyStockItems, items)
			return items[i], true
		}
	}
	return models.StockItem{}, false
}

// RemoveStockItem drops the item with id.
func (c *Cache) RemoveStockItem(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, ok := c.StockItems()
	if !ok {
		return
	}
	c.store.Save(KeyStockItems, removeWhere(items, func(it models.StockItem) bool { return it.ID == id }))
}

// =====================================================
// Locations
// =====================================================

// Locations returns the cached location list.
func (c *Cache) Locations() ([]models.Location, bool) {
	return db.LoadAs[[]models.Location](c.store, KeyLocations)
}

// SetLocations overwrites the cached location list.
func (c *Cache) SetLocations(locations []models.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if locations == nil {
		locations = []models.Location{}
	}
	c.store.Save(KeyLocations, locations)
}

// Location finds a cached location by id.
func (c *Cache) Location(id string) (models.Location, bool) {
	locations, _ := c.Locations()
	for _, l := range locations {
		if l.ID == id {
			return l, true
		}
	}
	return models.Location{}, false
}

// PutLocation inserts or replaces loc by id.
func (c *Cache) PutLocation(loc models.Location) {
	c.ReplaceLocation(loc.ID, loc)
}

// ReplaceLocation replaces the location cached under oldID with loc. The
// location's inventory snapshot and sales referring to oldID follow the new id.
func (c *Cache) ReplaceLocation(oldID string, loc models.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	locations, _ := c.Locations()
	locations = replaceOrAppend(locations, func(l models.Location) bool { return l.ID == oldID }, loc)
	c.store.Save(KeyLocations, locations)

	if oldID == loc.ID {
		return
	}
	if rows, ok := db.LoadAs[[]models.LocationInventory](c.store, InventoryKey(oldID)); ok {
		for i := range rows {
			rows[i].LocationID = loc.ID
		}
		c.store.Save(InventoryKey(loc.ID), rows)
		c.store.Clear(InventoryKey(oldID))
	}
	if sales, ok := c.Sales(); ok {
		changed := false
		for i := range sales {
			if sales[i].LocationID == oldID {
				sales[i].LocationID = loc.ID
				changed = true
			}
		}
		if changed {
			c.store.Save(KeySales, sales)
		}
	}
}

// RemoveLocation drops the location with id together with its inventory snapshot.
func (c *Cache) RemoveLocation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if locations, ok := c.Locations(); ok {
		c.store.Save(KeyLocations, removeWhere(locations, func(l models.Location) bool { return l.ID == id }))
	}
	c.store.Clear(InventoryKey(id))
}

// =====================================================
// Sales
// =====================================================

// Sales returns the cached sales list.
func (c *Cache) Sales() ([]models.Sale, bool) {
	return db.LoadAs[[]models.Sale](c.store, KeySales)
}

// SetSales overwrites the cached sales list.
func (c *Cache) SetSales(sales []models.Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sales == nil {
		sales = []models.Sale{}
	}
	c.store.Save(KeySales, sales)
}

// Sale finds a cached sale by id.
func (c *Cache) Sale(id string) (models.Sale, bool) {
	sales, _ := c.Sales()
	for _, s := range sales {
		if s.ID == id {
			return s, true
		}
	}
	return models.Sale{}, false
}

// PutSale inserts or replaces sale by id.
func (c *Cache) PutSale(sale models.Sale) {
	c.ReplaceSale(sale.ID, sale)
}

// ReplaceSale replaces the sale cached under oldID with sale.
func (c *Cache) ReplaceSale(oldID string, sale models.Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sales, _ := c.Sales()
	c.store.Save(KeySales, replaceOrAppend(sales, func(s models.Sale) bool { return s.ID == oldID }, sale))
}

// UpdateSale applies fn to the cached sale with id.
func (c *Cache) UpdateSale(id string, fn func(*models.Sale)) (models.Sale, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sales, _ := c.Sales()
	for i := range sales {
		if sales[i].ID == id {
			fn(&sales[i])
			c.store.Save(KeySales, sales)
			return sales[i], true
		}
	}
	return models.Sale{}, false
}

// =====================================================
// Location inventory
// =====================================================

// Inventory returns the cached inventory of a location.
func (c *Cache) Inventory(locationID string) ([]models.LocationInventory, bool) {
	return db.LoadAs[[]models.LocationInventory](c.store, InventoryKey(locationID))
}

// SetInventory overwrites the cached inventory of a location.
func (c *Cache) SetInventory(locationID string, rows []models.LocationInventory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rows == nil {
		rows = []models.LocationInventory{}
	}
	c.store.Save(InventoryKey(locationID), rows)
}

// InventoryQuantity returns the cached quantity of stockItemID at a location.
// known is false when the location has no cached inventory.
func (c *Cache) InventoryQuantity(locationID, stockItemID string) (qty int, known bool) {
	rows, ok := c.Inventory(locationID)
	if !ok {
		return 0, false
	}
	for _, r := range rows {
		if r.StockItem.ID == stockItemID {
			return r.Quantity, true
		}
	}
	return 0, true
}

// AdjustInventory adds delta to item's quantity at a location, adding a row
// when the item is not listed yet. Locations without a cached inventory are
// left alone.
func (c *Cache) AdjustInventory(locationID string, item models.StockItem, delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, ok := c.Inventory(locationID)
	if !ok {
		return false
	}
	for i := range rows {
		if rows[i].StockItem.ID == item.ID {
			rows[i].Quantity += delta
			c.store.Save(InventoryKey(locationID), rows)
			return true
		}
	}
	rows = append(rows, models.LocationInventory{StockItem: item, Quantity: delta, LocationID: locationID})
	c.store.Save(InventoryKey(locationID), rows)
	return true
}

// InventoryLocations lists location ids that have a cached inventory.
func (c *Cache) InventoryLocations() []string {
	keys := c.store.Keys(InventoryPrefix)
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, InventoryPrefix))
	}
	return ids
}

func replaceOrAppend[T any](list []T, match func(T) bool, v T) []T {
	for i := range list {
		if match(list[i]) {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

func removeWhere[T any](list []T, match func(T) bool) []T {
	out := list[:0]
	for _, v := range list {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}
