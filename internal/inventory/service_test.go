package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbitroy/stockflow/backend/internal/api"
	"github.com/arbitroy/stockflow/backend/internal/api/fakeapi"
	"github.com/arbitroy/stockflow/backend/internal/cache"
	"github.com/arbitroy/stockflow/backend/internal/connection"
	"github.com/arbitroy/stockflow/backend/internal/db"
	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	syncpkg "github.com/arbitroy/stockflow/backend/internal/sync"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

type fixture struct {
	remote  *fakeapi.Server
	client  *api.Client
	monitor *connection.Monitor
	queue   *queue.Queue
	cache   *cache.Cache
	rec     *notify.Recorder
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, queue.Options{})
}

func newFixtureWith(t *testing.T, opts queue.Options) *fixture {
	t.Helper()
	remote := fakeapi.New()
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	store := db.NewMemoryStore()
	rec := &notify.Recorder{}
	opts.Notifier = rec
	q := queue.New(store, opts)
	c := cache.New(store)
	monitor := connection.NewMonitor(connection.Config{HealthURL: srv.URL + "/api/health", ProbeTimeout: time.Second})
	client := api.NewClient(api.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second, Observer: monitor})

	f := &fixture{
		remote:  remote,
		client:  client,
		monitor: monitor,
		queue:   q,
		cache:   c,
		rec:     rec,
		svc: NewService(Config{
			Remote:     client,
			Cache:      c,
			Queue:      q,
			Connection: monitor,
			Notifier:   rec,
		}),
	}
	require.True(t, monitor.CheckConnection(context.Background()))
	return f
}

// goOffline makes the API unreachable and lets the monitor notice.
func (f *fixture) goOffline(t *testing.T) {
	t.Helper()
	f.remote.SetUnreachable(true)
	require.False(t, f.monitor.CheckConnection(context.Background()))
}

func (f *fixture) goOnline(t *testing.T) {
	t.Helper()
	f.remote.SetUnreachable(false)
	require.True(t, f.monitor.CheckConnection(context.Background()))
}

func (f *fixture) mutations() []fakeapi.Call {
	var out []fakeapi.Call
	for _, c := range f.remote.Calls() {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func widget(qty int) models.StockItem {
	return models.StockItem{Name: "Widget", SKU: "WG-001", Price: decimal.RequireFromString("4.50"), Quantity: qty}
}

// TestCreateStockItem_online tests that a reachable API creates the item and
// the cache follows the server response.
func TestCreateStockItem_online(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.CreateStockItem(context.Background(), widget(20))
	require.NoError(t, err)
	assert.False(t, uuid.IsTemporary(item.ID))
	assert.Equal(t, models.StockActive, item.Status)

	cached, ok := f.cache.StockItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, item.SKU, cached.SKU)
	assert.Zero(t, f.queue.Size())
}

// TestCreateStockItem_offline tests that an offline create returns a
// provisional item, caches it and queues the create.
func TestCreateStockItem_offline(t *testing.T) {
	f := newFixture(t)
	f.goOffline(t)

	item, err := f.svc.CreateStockItem(context.Background(), widget(8))
	require.NoError(t, err)
	assert.True(t, uuid.IsTemporary(item.ID))
	assert.Equal(t, models.StockLow, item.Status)
	assert.Empty(t, item.CreatedAt)

	_, ok := f.cache.StockItem(item.ID)
	assert.True(t, ok)

	actions := f.queue.List()
	require.Len(t, actions, 1)
	create, ok := actions[0].Payload.(queue.CreateStock)
	require.True(t, ok)
	assert.Equal(t, item.ID, create.TempID)
	assert.Empty(t, create.Item.ID)

	assert.Len(t, f.rec.OfType(notify.EventQueued), 1)
	assert.Empty(t, f.mutations())
}

// TestCreateStockItem_connectivityFallsThrough tests that a transport
// failure on a direct call queues the mutation instead of failing.
func TestCreateStockItem_connectivityFallsThrough(t *testing.T) {
	f := newFixture(t)
	f.remote.SetUnreachable(true)

	item, err := f.svc.CreateStockItem(context.Background(), widget(5))
	require.NoError(t, err)
	assert.True(t, uuid.IsTemporary(item.ID))
	assert.Equal(t, 1, f.queue.Size())
	assert.False(t, f.monitor.IsConnected())
}

// TestCreateStockItem_businessErrors tests that rejections from the API are
// returned unchanged and never queued.
func TestCreateStockItem_businessErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   apperrors.ErrorCode
	}{
		{"validation", http.StatusBadRequest, apperrors.ErrValidation},
		{"conflict", http.StatusConflict, apperrors.ErrValidation},
		{"server error", http.StatusInternalServerError, apperrors.ErrRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.remote.FailNext(http.MethodPost, "/stock", tt.status, 1)

			_, err := f.svc.CreateStockItem(context.Background(), widget(5))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
			assert.Zero(t, f.queue.Size())
			stock, _ := f.cache.StockItems()
			assert.Empty(t, stock)
		})
	}
}

// TestCreateStockItem_invalid tests local validation.
func TestCreateStockItem_invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateStockItem(context.Background(), models.StockItem{SKU: "X"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
	_, err = f.svc.CreateStockItem(context.Background(), widget(-1))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
	assert.Empty(t, f.mutations())
}

// TestCreateStockItem_queueFull tests that a full queue rejects the change
// and leaves the cache untouched.
func TestCreateStockItem_queueFull(t *testing.T) {
	f := newFixtureWith(t, queue.Options{MaxSize: 1})
	f.goOffline(t)

	_, err := f.svc.CreateStockItem(context.Background(), widget(1))
	require.NoError(t, err)
	_, err = f.svc.CreateStockItem(context.Background(), widget(2))
	assert.True(t, apperrors.Is(err, apperrors.ErrQueueFull))

	stock, _ := f.cache.StockItems()
	assert.Len(t, stock, 1)
}

// TestUpdateStockItem_offline tests that an offline update keeps the cached
// quantity and queues the new fields.
func TestUpdateStockItem_offline(t *testing.T) {
	f := newFixture(t)
	seeded := f.remote.SeedStock(widget(30))[0]
	_, err := f.svc.ListStockItems(context.Background())
	require.NoError(t, err)
	f.goOffline(t)

	change := widget(0)
	change.Name = "Blue Widget"
	updated, err := f.svc.UpdateStockItem(context.Background(), seeded.ID, change)
	require.NoError(t, err)
	assert.Equal(t, "Blue Widget", updated.Name)
	assert.Equal(t, 30, updated.Quantity)
	assert.Equal(t, models.StockActive, updated.Status)
	assert.Equal(t, 1, f.queue.Size())

	_, err = f.svc.UpdateStockItem(context.Background(), "missing", change)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

// TestDeleteStockItem tests online and offline deletes.
func TestDeleteStockItem(t *testing.T) {
	f := newFixture(t)
	items := f.remote.SeedStock(widget(3), models.StockItem{Name: "Bolt", SKU: "BT-1", Quantity: 100})
	_, err := f.svc.ListStockItems(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteStockItem(context.Background(), items[0].ID))
	_, ok := f.remote.Stock(items[0].ID)
	assert.False(t, ok)

	f.goOffline(t)
	require.NoError(t, f.svc.DeleteStockItem(context.Background(), items[1].ID))
	stock, _ := f.cache.StockItems()
	assert.Empty(t, stock)
	assert.Equal(t, 1, f.queue.Size())
}

// TestRecordMovement_offline tests the local movement rules and the status
// derived from the new quantity.
func TestRecordMovement_offline(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		req      models.StockMovementRequest
		quantity int
		status   models.StockStatus
	}{
		{"in", 5, models.StockMovementRequest{Type: models.MovementIn, Quantity: 6}, 11, models.StockActive},
		{"out to threshold", 15, models.StockMovementRequest{Type: models.MovementOut, Quantity: 5}, 10, models.StockLow},
		{"out to one", 2, models.StockMovementRequest{Type: models.MovementOut, Quantity: 1}, 1, models.StockLow},
		{"out to zero", 4, models.StockMovementRequest{Type: models.MovementOut, Quantity: 4}, 0, models.StockOut},
		{"adjust", 50, models.StockMovementRequest{Type: models.MovementAdjust, Quantity: 0}, 0, models.StockOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			item := widget(tt.start)
			item.ID = "item-1"
			item.Status = models.DeriveStatus(tt.start, models.DefaultLowStockThreshold)
			f.cache.SetStockItems([]models.StockItem{item})
			f.goOffline(t)

			tt.req.StockItemID = item.ID
			got, err := f.svc.RecordMovement(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.quantity, got.Quantity)
			assert.Equal(t, tt.status, got.Status)

			cached, _ := f.cache.StockItem(item.ID)
			assert.Equal(t, tt.quantity, cached.Quantity)
			assert.Equal(t, 1, f.queue.Size())
		})
	}
}

// TestRecordMovement_offlineRejected tests that an impossible movement is
// rejected locally without touching the cache or the queue.
func TestRecordMovement_offlineRejected(t *testing.T) {
	f := newFixture(t)
	item := widget(3)
	item.ID = "item-1"
	f.cache.SetStockItems([]models.StockItem{item})
	f.goOffline(t)

	_, err := f.svc.RecordMovement(context.Background(), models.StockMovementRequest{
		StockItemID: item.ID, Type: models.MovementOut, Quantity: 4,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "Available: 3")

	cached, _ := f.cache.StockItem(item.ID)
	assert.Equal(t, 3, cached.Quantity)
	assert.Zero(t, f.queue.Size())

	_, err = f.svc.RecordMovement(context.Background(), models.StockMovementRequest{
		StockItemID: "unknown", Type: models.MovementIn, Quantity: 1,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

// TestRecordMovement_online tests that the item is refetched after the server
// applied the movement.
func TestRecordMovement_online(t *testing.T) {
	f := newFixture(t)
	seeded := f.remote.SeedStock(widget(20))[0]

	got, err := f.svc.RecordMovement(context.Background(), models.StockMovementRequest{
		StockItemID: seeded.ID, Type: models.MovementOut, Quantity: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)
	assert.Equal(t, models.StockLow, got.Status)

	cached, ok := f.cache.StockItem(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, 8, cached.Quantity)
}

// TestRecordMovement_onlineUnknownState tests that an accepted movement on an
// uncached item whose refetch fails reports no item instead of a blank one.
func TestRecordMovement_onlineUnknownState(t *testing.T) {
	f := newFixture(t)
	seeded := f.remote.SeedStock(widget(20))[0]
	f.remote.FailNext(http.MethodGet, "/stock/"+seeded.ID, http.StatusInternalServerError, 1)

	got, err := f.svc.RecordMovement(context.Background(), models.StockMovementRequest{
		StockItemID: seeded.ID, Type: models.MovementOut, Quantity: 5,
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok := f.cache.StockItem(seeded.ID)
	assert.False(t, ok)
	server, _ := f.remote.Stock(seeded.ID)
	assert.Equal(t, 15, server.Quantity)
	assert.Equal(t, 0, f.queue.Size())
}

// TestRecordMovement_onlineRefetchFails tests that a failed refetch applies the
// movement to the cached copy.
func TestRecordMovement_onlineRefetchFails(t *testing.T) {
	f := newFixture(t)
	seeded := f.remote.SeedStock(widget(20))[0]
	f.cache.SetStockItems([]models.StockItem{seeded})
	f.remote.FailNext(http.MethodGet, "/stock/"+seeded.ID, http.StatusInternalServerError, 1)

	got, err := f.svc.RecordMovement(context.Background(), models.StockMovementRequest{
		StockItemID: seeded.ID, Type: models.MovementOut, Quantity: 15,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, models.StockLow, got.Status)
}

// TestOfflineRoundTrip tests that changes made offline reach the server
// once the connection returns and the cache ends up with server ids.
func TestOfflineRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.goOffline(t)
	ctx := context.Background()

	created, err := f.svc.CreateStockItem(ctx, widget(20))
	require.NoError(t, err)
	_, err = f.svc.RecordMovement(ctx, models.StockMovementRequest{
		StockItemID: created.ID, Type: models.MovementOut, Quantity: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.queue.Size())

	f.goOnline(t)
	engine := syncpkg.NewEngine(syncpkg.Config{
		Queue: f.queue, Cache: f.cache, Remote: f.client, Connection: f.monitor,
	})
	result, err := engine.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, f.queue.Size())

	server := f.remote.StockItems()
	require.Len(t, server, 1)
	assert.Equal(t, 5, server[0].Quantity)
	assert.Equal(t, models.StockLow, server[0].Status)

	cached, ok := f.cache.StockItem(server[0].ID)
	require.True(t, ok)
	assert.Equal(t, 5, cached.Quantity)
	_, ok = f.cache.StockItem(created.ID)
	assert.False(t, ok)
}

// TestMutationOnTemporaryID tests that a change to an entity that only
// exists locally is queued behind its create even while online.
func TestMutationOnTemporaryID(t *testing.T) {
	f := newFixture(t)
	f.goOffline(t)
	created, err := f.svc.CreateStockItem(context.Background(), widget(20))
	require.NoError(t, err)
	f.goOnline(t)

	_, err = f.svc.RecordMovement(context.Background(), models.StockMovementRequest{
		StockItemID: created.ID, Type: models.MovementIn, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.queue.Size())
	assert.Empty(t, f.mutations())
}

// TestListStockItems tests that list reads refresh the cache and fall back
// to it when the API is gone.
func TestListStockItems(t *testing.T) {
	f := newFixture(t)
	f.remote.SeedStock(widget(20), widget(3))

	items, err := f.svc.ListStockItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Empty(t, f.rec.OfType(notify.EventCacheFallback))

	f.remote.SetUnreachable(true)
	items, err = f.svc.ListStockItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	require.Len(t, f.rec.OfType(notify.EventCacheFallback), 1)
	assert.Equal(t, "stock_items", f.rec.OfType(notify.EventCacheFallback)[0].Data["collection"])
}

// TestListStockItems_noCache tests that a failed read with nothing cached
// returns the failure.
func TestListStockItems_noCache(t *testing.T) {
	f := newFixture(t)
	f.remote.SetUnreachable(true)

	_, err := f.svc.ListStockItems(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConnectivity(err))
}

// TestListStockItems_offlineMode tests that forced offline mode reads only the cache.
func TestListStockItems_offlineMode(t *testing.T) {
	f := newFixture(t)
	f.cache.SetStockItems([]models.StockItem{widget(1)})
	f.monitor.SetOfflineMode(true)
	f.remote.ResetCalls()

	items, err := f.svc.ListStockItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, f.remote.Calls())
}

// TestGetStockItem_notFound tests that the API's answer wins over the cache.
func TestGetStockItem_notFound(t *testing.T) {
	f := newFixture(t)
	item := widget(1)
	item.ID = "gone"
	f.cache.SetStockItems([]models.StockItem{item})

	_, err := f.svc.GetStockItem(context.Background(), "gone")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	f.remote.SetUnreachable(true)
	got, err := f.svc.GetStockItem(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, "gone", got.ID)
}

// TestListLowStockItems_cache tests that the cached low-stock listing is
// filtered from the cached items.
func TestListLowStockItems_cache(t *testing.T) {
	f := newFixture(t)
	f.remote.SeedStock(widget(50), widget(10), widget(0))
	_, err := f.svc.ListStockItems(context.Background())
	require.NoError(t, err)

	online, err := f.svc.ListLowStockItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, online, 2)

	f.remote.SetUnreachable(true)
	cached, err := f.svc.ListLowStockItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2)
	for _, it := range cached {
		assert.True(t, it.IsLow())
	}
}
