package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/api"
	"github.com/arbitroy/stockflow/backend/internal/cache"
	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/metrics"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/sync/reconcile"
)

// SyncStatus represents the current sync status.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
)

// Sentinel errors returned by ProcessQueue when no pass runs.
var (
	ErrSyncInProgress = apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	ErrQueueEmpty     = apperrors.New(apperrors.ErrSyncSkipped, "queue is empty")
	ErrOffline        = apperrors.New(apperrors.ErrSyncSkipped, "remote API is unreachable")
)

// Connectivity reports whether the remote API is reachable.
type Connectivity interface {
	IsConnected() bool
}

// SyncResult represents the result of one drain pass.
type SyncResult struct {
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Duration  time.Duration   `json:"duration"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Failures  []ActionFailure `json:"failures,omitempty"`
}

// Total returns the number of actions the pass looked at.
func (r *SyncResult) Total() int {
	return r.Succeeded + r.Failed + r.Skipped
}

// ActionFailure describes one action that could not be replayed.
type ActionFailure struct {
	ActionID string `json:"actionId"`
	Type     string `json:"type"`
	Entity   string `json:"entity"`
	Code     string `json:"code"`
	Error    string `json:"error"`
}

// Config wires an Engine.
type Config struct {
	Queue      *queue.Queue
	Cache      *cache.Cache
	Remote     api.Remote
	Connection Connectivity
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
}

// Engine drains the offline queue in FIFO order. Only one drain runs at a time.
type Engine struct {
	queue      *queue.Queue
	cache      *cache.Cache
	remote     api.Remote
	conn       Connectivity
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	reconciler *reconcile.Reconciler

	running atomic.Bool

	mu         sync.RWMutex
	lastSync   *time.Time
	lastErr    error
	lastResult *SyncResult
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	n := cfg.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &Engine{
		queue:      cfg.Queue,
		cache:      cfg.Cache,
		remote:     cfg.Remote,
		conn:       cfg.Connection,
		notifier:   n,
		metrics:    cfg.Metrics,
		reconciler: reconcile.New(cfg.Queue, cfg.Cache),
	}
}

// Status returns the current sync status.
func (e *Engine) Status() SyncStatus {
	if e.running.Load() {
		return SyncStatusSyncing
	}
	return SyncStatusIdle
}

// LastSync returns the completion time of the last pass without failures.
func (e *Engine) LastSync() *time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSync
}

// LastError returns the last replay error.
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// LastResult returns the result of the most recent pass.
func (e *Engine) LastResult() *SyncResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastResult
}

// PendingChanges returns the number of queued actions.
func (e *Engine) PendingChanges() int {
	return e.queue.Size()
}

// ProcessQueue replays every queued action once, in order.
//
// Succeeded actions are removed and the queue persisted immediately.
// Failed actions stay queued with their error recorded. Actions that depend
// on a provisional id whose CREATE failed in this pass are skipped, and so
// is the rest of the pass once the remote becomes unreachable. Each action
// is re-read from the queue before replay so ids reconciled earlier in the
// pass are sent to the remote.
func (e *Engine) ProcessQueue(ctx context.Context) (*SyncResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.running.Store(false)

	if e.queue.Size() == 0 {
		return nil, ErrQueueEmpty
	}
	if e.conn != nil && !e.conn.IsConnected() {
		return nil, ErrOffline
	}

	actions := e.queue.Snapshot()
	result := &SyncResult{StartTime: time.Now()}

	logging.Info("sync started", map[string]interface{}{"pending": len(actions)})
	e.notifier.Notify(notify.New(notify.EventSyncStarted, notify.LevelInfo,
		fmt.Sprintf("Syncing %d pending changes", len(actions)),
		map[string]interface{}{"pending": len(actions)}))

	lineage := reconcile.NewLineage()
	var lastErr error
	halted := false

	for _, snap := range actions {
		if halted || ctx.Err() != nil {
			result.Skipped++
			e.metrics.ObserveReplay(string(snap.Entity), metrics.ReplaySkipped)
			continue
		}
		// Earlier replays in this pass may have rewritten provisional ids.
		a, ok := e.queue.Get(snap.ID)
		if !ok {
			continue
		}
		if lineage.Blocks(a.Payload) {
			if id, ok := reconcile.CreatedID(a.Payload); ok {
				lineage.Block(id)
			}
			result.Skipped++
			e.metrics.ObserveReplay(string(a.Entity), metrics.ReplaySkipped)
			logging.Debug("sync: action skipped, depends on unsynced entity", map[string]interface{}{
				"id":     a.ID,
				"action": queue.Describe(a),
			})
			continue
		}

		err := e.replay(ctx, a.Payload)
		if err == nil {
			if rmErr := e.queue.Remove(a.ID); rmErr != nil {
				logging.Warn("sync: replayed action already removed", map[string]interface{}{"id": a.ID})
			}
			result.Succeeded++
			e.metrics.ObserveReplay(string(a.Entity), metrics.ReplaySucceeded)
			continue
		}

		lastErr = err
		e.queue.RecordFailure(a.ID, err)
		if id, ok := reconcile.CreatedID(a.Payload); ok {
			lineage.Block(id)
		}
		result.Failed++
		result.Failures = append(result.Failures, ActionFailure{
			ActionID: a.ID,
			Type:     string(a.Type),
			Entity:   string(a.Entity),
			Code:     string(apperrors.CodeOf(err)),
			Error:    err.Error(),
		})
		e.metrics.ObserveReplay(string(a.Entity), metrics.ReplayFailed)
		logging.ErrorWithCode("sync: replay failed", string(apperrors.CodeOf(err)), err, map[string]interface{}{
			"id":     a.ID,
			"action": queue.Describe(a),
		})

		if apperrors.IsConnectivity(err) {
			halted = true
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	e.metrics.ObserveSync(result.Duration)

	e.mu.Lock()
	e.lastResult = result
	e.lastErr = lastErr
	if result.Failed == 0 {
		end := result.EndTime
		e.lastSync = &end
	}
	e.mu.Unlock()

	e.report(result)
	return result, nil
}

// report logs and announces the outcome of a pass.
func (e *Engine) report(r *SyncResult) {
	ctx := map[string]interface{}{
		"succeeded": r.Succeeded,
		"failed":    r.Failed,
		"skipped":   r.Skipped,
		"pending":   e.queue.Size(),
		"duration":  r.Duration.String(),
	}
	data := map[string]interface{}{
		"succeeded": r.Succeeded,
		"failed":    r.Failed,
		"skipped":   r.Skipped,
		"pending":   e.queue.Size(),
	}

	if r.Failed == 0 && r.Skipped == 0 {
		logging.Info("sync completed", ctx)
		e.notifier.Notify(notify.New(notify.EventSyncCompleted, notify.LevelSuccess,
			fmt.Sprintf("%d offline changes synced", r.Succeeded), data))
		return
	}

	logging.Warn("sync completed with failures", ctx)
	e.notifier.Notify(notify.New(notify.EventSyncFailed, notify.LevelWarning,
		fmt.Sprintf("%d changes synced, %d failed, %d still pending", r.Succeeded, r.Failed, r.Failed+r.Skipped), data))
}

// replay dispatches one payload to the remote API and folds the server's
// answer back into the cache.
func (e *Engine) replay(ctx context.Context, p queue.Payload) error {
	switch v := p.(type) {
	case queue.CreateStock:
		item := v.Item
		item.ID = ""
		created, err := e.remote.CreateStockItem(ctx, item)
		if err != nil {
			return err
		}
		e.reconciler.StockCreated(v.TempID, *created)
		return nil

	case queue.UpdateStock:
		updated, err := e.remote.UpdateStockItem(ctx, v.ID, v.Item)
		if err != nil {
			return err
		}
		e.cache.PutStockItem(*updated)
		return nil

	case queue.DeleteStock:
		if err := e.remote.DeleteStockItem(ctx, v.ID); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		e.cache.RemoveStockItem(v.ID)
		return nil

	case queue.RecordMovement:
		if err := e.remote.RecordMovement(ctx, v.Request); err != nil {
			return err
		}
		e.refreshStockItem(ctx, v.Request.StockItemID)
		return nil

	case queue.CreateSale:
		sale, err := e.remote.CreateSale(ctx, v.Request)
		if err != nil {
			return err
		}
		e.reconciler.SaleCreated(v.TempID, *sale)
		return nil

	case queue.UpdateSaleStatus:
		sale, err := e.remote.UpdateSaleStatus(ctx, v.ID, v.Status)
		if err != nil {
			return err
		}
		e.cache.PutSale(*sale)
		return nil

	case queue.CreateLocation:
		loc := v.Location
		loc.ID = ""
		created, err := e.remote.CreateLocation(ctx, loc)
		if err != nil {
			return err
		}
		e.reconciler.LocationCreated(v.TempID, *created)
		return nil

	case queue.UpdateLocation:
		updated, err := e.remote.UpdateLocation(ctx, v.ID, v.Location)
		if err != nil {
			return err
		}
		e.cache.PutLocation(*updated)
		return nil

	case queue.DeleteLocation:
		if err := e.remote.DeleteLocation(ctx, v.ID); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		e.cache.RemoveLocation(v.ID)
		return nil

	case queue.CreateTransfer:
		if _, err := e.remote.Transfer(ctx, v.Request); err != nil {
			return err
		}
		e.refreshInventory(ctx, v.Request.SourceLocationID)
		e.refreshInventory(ctx, v.Request.TargetLocationID)
		return nil
	}
	return apperrors.Newf(apperrors.ErrInvalidAction, "no replay handler for %T", p)
}

// refreshStockItem replaces the cached item with the server's copy. The
// optimistic copy is kept when the fetch fails.
func (e *Engine) refreshStockItem(ctx context.Context, id string) {
	item, err := e.remote.GetStockItem(ctx, id)
	if err != nil {
		logging.Debug("sync: stock refresh failed", map[string]interface{}{"id": id, "error": err.Error()})
		return
	}
	e.cache.PutStockItem(*item)
}

// refreshInventory replaces a cached location inventory with the server's.
func (e *Engine) refreshInventory(ctx context.Context, locationID string) {
	if _, ok := e.cache.Inventory(locationID); !ok {
		return
	}
	rows, err := e.remote.LocationInventory(ctx, locationID)
	if err != nil {
		logging.Debug("sync: inventory refresh failed", map[string]interface{}{"location": locationID, "error": err.Error()})
		return
	}
	e.cache.SetInventory(locationID, rows)
}
