package inventory

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// TestListLocations_defaults tests the degraded location set served when
// neither the API nor the cache has locations.
func TestListLocations_defaults(t *testing.T) {
	f := newFixture(t)
	f.remote.SetUnreachable(true)

	locs, err := f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, DefaultWarehouseID, locs[0].ID)
	assert.Equal(t, models.LocationWarehouse, locs[0].Type)
	assert.Equal(t, DefaultStoreID, locs[1].ID)
	assert.Equal(t, models.LocationStore, locs[1].Type)
	assert.Len(t, f.rec.OfType(notify.EventDefaultLocations), 1)

	_, ok := f.cache.Locations()
	assert.False(t, ok)
}

// TestListLocations_cache tests that cached locations win over the defaults.
func TestListLocations_cache(t *testing.T) {
	f := newFixture(t)
	f.remote.SeedLocation(models.Location{Name: "North", Type: models.LocationWarehouse})

	locs, err := f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 1)

	f.remote.SetUnreachable(true)
	locs, err = f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "North", locs[0].Name)
	assert.Empty(t, f.rec.OfType(notify.EventDefaultLocations))
	assert.Len(t, f.rec.OfType(notify.EventCacheFallback), 1)
}

// TestListLocations_serverError tests that a 5xx also falls back to cache.
func TestListLocations_serverError(t *testing.T) {
	f := newFixture(t)
	f.cache.SetLocations([]models.Location{{ID: "l1", Name: "North", Type: models.LocationWarehouse}})
	f.remote.FailNext(http.MethodGet, "/locations", http.StatusServiceUnavailable, 1)

	locs, err := f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "l1", locs[0].ID)
}

// TestLocationLifecycle_offline tests create, update and delete of a
// location while offline.
func TestLocationLifecycle_offline(t *testing.T) {
	f := newFixture(t)
	f.goOffline(t)
	ctx := context.Background()

	loc, err := f.svc.CreateLocation(ctx, models.Location{Name: "Pop-up", Type: models.LocationStore})
	require.NoError(t, err)
	assert.True(t, uuid.IsTemporary(loc.ID))
	rows, ok := f.cache.Inventory(loc.ID)
	assert.True(t, ok)
	assert.Empty(t, rows)

	updated, err := f.svc.UpdateLocation(ctx, loc.ID, models.Location{Name: "Kiosk", Type: models.LocationStore})
	require.NoError(t, err)
	assert.Equal(t, "Kiosk", updated.Name)

	require.NoError(t, f.svc.DeleteLocation(ctx, loc.ID))
	_, ok = f.cache.Location(loc.ID)
	assert.False(t, ok)
	assert.Equal(t, 3, f.queue.Size())

	_, err = f.svc.CreateLocation(ctx, models.Location{Name: "Bad", Type: "GARAGE"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
}

// TestLocationInventory tests that inventory reads are cached per location.
func TestLocationInventory(t *testing.T) {
	f := newFixture(t)
	loc := f.remote.SeedLocation(models.Location{Name: "North", Type: models.LocationWarehouse})[0]
	item := f.remote.SeedStock(widget(40))[0]
	f.remote.SetLocationStock(loc.ID, item.ID, 25)

	rows, err := f.svc.LocationInventory(context.Background(), loc.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 25, rows[0].Quantity)

	f.remote.SetUnreachable(true)
	rows, err = f.svc.LocationInventory(context.Background(), loc.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 25, rows[0].Quantity)

	_, err = f.svc.LocationInventory(context.Background(), "elsewhere")
	assert.True(t, apperrors.IsConnectivity(err))
}

// TestTransferStock_offline tests that an offline transfer checks the cached
// source inventory and moves quantity between the cached inventories.
func TestTransferStock_offline(t *testing.T) {
	f := newFixture(t)
	item := models.StockItem{ID: "item-1", Name: "Widget", SKU: "WG"}
	f.cache.SetStockItems([]models.StockItem{item})
	f.cache.SetInventory("src", []models.LocationInventory{{StockItem: item, Quantity: 10, LocationID: "src"}})
	f.cache.SetInventory("dst", nil)
	f.goOffline(t)
	ctx := context.Background()

	_, err := f.svc.TransferStock(ctx, models.TransferRequest{
		StockItemID: item.ID, SourceLocationID: "src", TargetLocationID: "dst", Quantity: 11,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	assert.Zero(t, f.queue.Size())

	transfer, err := f.svc.TransferStock(ctx, models.TransferRequest{
		StockItemID: item.ID, SourceLocationID: "src", TargetLocationID: "dst", Quantity: 4, Reference: "T-1",
	})
	require.NoError(t, err)
	assert.True(t, transfer.PendingSync)
	assert.Equal(t, models.MovementOut, transfer.OutMovement.Type)
	assert.Equal(t, "src", transfer.OutMovement.LocationID)
	assert.Equal(t, models.MovementIn, transfer.InMovement.Type)
	assert.Equal(t, "dst", transfer.InMovement.LocationID)

	src, _ := f.cache.InventoryQuantity("src", item.ID)
	dst, _ := f.cache.InventoryQuantity("dst", item.ID)
	assert.Equal(t, 6, src)
	assert.Equal(t, 4, dst)
	assert.Equal(t, 1, f.queue.Size())
}

// TestTransferStock_unknownSource tests that a source without cached
// inventory is not checked locally.
func TestTransferStock_unknownSource(t *testing.T) {
	f := newFixture(t)
	f.goOffline(t)

	_, err := f.svc.TransferStock(context.Background(), models.TransferRequest{
		StockItemID: "item-1", SourceLocationID: "a", TargetLocationID: "b", Quantity: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.queue.Size())

	_, err = f.svc.TransferStock(context.Background(), models.TransferRequest{
		StockItemID: "item-1", SourceLocationID: "a", TargetLocationID: "a", Quantity: 1,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
}

// TestTransferStock_online tests that a server-side transfer updates both
// cached inventories.
func TestTransferStock_online(t *testing.T) {
	f := newFixture(t)
	locs := f.remote.SeedLocation(
		models.Location{Name: "North", Type: models.LocationWarehouse},
		models.Location{Name: "Shop", Type: models.LocationStore},
	)
	item := f.remote.SeedStock(widget(40))[0]
	f.remote.SetLocationStock(locs[0].ID, item.ID, 30)
	ctx := context.Background()
	_, err := f.svc.LocationInventory(ctx, locs[0].ID)
	require.NoError(t, err)
	_, err = f.svc.LocationInventory(ctx, locs[1].ID)
	require.NoError(t, err)

	transfer, err := f.svc.TransferStock(ctx, models.TransferRequest{
		StockItemID: item.ID, SourceLocationID: locs[0].ID, TargetLocationID: locs[1].ID, Quantity: 12,
	})
	require.NoError(t, err)
	assert.False(t, transfer.PendingSync)

	src, _ := f.cache.InventoryQuantity(locs[0].ID, item.ID)
	dst, _ := f.cache.InventoryQuantity(locs[1].ID, item.ID)
	assert.Equal(t, 18, src)
	assert.Equal(t, 12, dst)
	assert.Zero(t, f.queue.Size())
}
