// Package scheduler owns the background timers of the sync core: the
// connection probe loop and the queue drain loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/connection"
	"github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	syncpkg "github.com/arbitroy/stockflow/backend/internal/sync"
)

// Monitor is the connection tracker the scheduler probes and listens to.
type Monitor interface {
	CheckConnection(ctx context.Context) bool
	IsConnected() bool
	OfflineMode() bool
	Subscribe(l connection.Listener) func()
}

// Scheduler runs the probe loop and the sync loop, and drains the queue
// whenever the connection comes back.
type Scheduler struct {
	engine        syncpkg.Syncer
	monitor       Monitor
	notifier      notify.Notifier
	syncInterval  time.Duration
	probeInterval time.Duration
	autoSync      bool

	trigger     chan struct{}
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup

	mu           sync.RWMutex
	isRunning    bool
	lastSyncTime time.Time
	lastResult   *syncpkg.SyncResult
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	SyncInterval  time.Duration // How often to drain the queue while online (default: 60 seconds)
	ProbeInterval time.Duration // How often to probe the remote API (default: 30 seconds)
	AutoSync      bool          // Whether the timer drains at all; reconnect drains always run
	Notifier      notify.Notifier
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		SyncInterval:  60 * time.Second,
		ProbeInterval: 30 * time.Second,
		AutoSync:      true,
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(engine syncpkg.Syncer, monitor Monitor, config *SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if config == nil {
		config = def
	}
	syncInterval := config.SyncInterval
	if syncInterval <= 0 {
		syncInterval = def.SyncInterval
	}
	probeInterval := config.ProbeInterval
	if probeInterval <= 0 {
		probeInterval = def.ProbeInterval
	}
	n := config.Notifier
	if n == nil {
		n = notify.Nop{}
	}

	return &Scheduler{
		engine:        engine,
		monitor:       monitor,
		notifier:      n,
		syncInterval:  syncInterval,
		probeInterval: probeInterval,
		autoSync:      config.AutoSync,
		trigger:       make(chan struct{}, 1),
	}
}

// Start starts both loops. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.unsubscribe = s.monitor.Subscribe(s.onTransition)

	// The probe loop runs in offline mode too, so turning it off later is
	// picked up on the next tick.
	s.wg.Add(2)
	go s.probeLoop(runCtx)
	go s.syncLoop(runCtx)

	logging.Info("Background sync scheduler started", map[string]interface{}{
		"sync_interval":  s.syncInterval.String(),
		"probe_interval": s.probeInterval.String(),
		"auto_sync":      s.autoSync,
	})
}

// Stop stops both loops and waits for them, including a drain in flight.
// It is a no-op when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel, unsubscribe := s.cancel, s.unsubscribe
	s.mu.Unlock()

	unsubscribe()
	cancel()
	s.wg.Wait()

	logging.Info("Background sync scheduler stopped", nil)
}

// onTransition reacts to connection changes reported by the monitor.
func (s *Scheduler) onTransition(prev, next connection.State) {
	if next.IsConnected && !prev.IsConnected {
		pending := s.engine.PendingChanges()
		s.notifier.Notify(notify.New(notify.EventConnectionRestored, notify.LevelSuccess,
			"Connection restored", map[string]interface{}{"pending": pending}))
		if pending > 0 {
			select {
			case s.trigger <- struct{}{}:
			default:
			}
		}
		return
	}
	if !next.IsConnected && prev.IsConnected {
		s.notifier.Notify(notify.New(notify.EventConnectionLost, notify.LevelWarning,
			"Working offline. Changes will sync when the connection returns", nil))
	}
}

// probeLoop checks the connection immediately and then on every tick.
func (s *Scheduler) probeLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	s.monitor.CheckConnection(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.monitor.CheckConnection(ctx)
		}
	}
}

// syncLoop drains the queue on every tick while online, and whenever a
// reconnect is signalled.
func (s *Scheduler) syncLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.runSync(ctx, "reconnect")
		case <-ticker.C:
			if !s.autoSync || !s.monitor.IsConnected() || s.engine.PendingChanges() == 0 {
				continue
			}
			s.runSync(ctx, "timer")
		}
	}
}

// runSync executes one drain and logs its outcome.
func (s *Scheduler) runSync(ctx context.Context, reason string) (*syncpkg.SyncResult, error) {
	result, err := s.engine.ProcessQueue(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrSyncSkipped) || errors.Is(err, errors.ErrSyncInProgress) {
			logging.Debug("Sync skipped", map[string]interface{}{"reason": reason, "cause": err.Error()})
		} else {
			logging.ErrorWithCode("Sync failed", string(errors.ErrSyncFailed), err,
				map[string]interface{}{"reason": reason})
		}
		return nil, err
	}

	s.mu.Lock()
	s.lastSyncTime = result.EndTime
	s.lastResult = result
	s.mu.Unlock()

	logging.Info("Sync pass finished", map[string]interface{}{
		"reason":    reason,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	})
	return result, nil
}

// TriggerSync drains the queue now and returns the result.
func (s *Scheduler) TriggerSync(ctx context.Context) (*syncpkg.SyncResult, error) {
	return s.runSync(ctx, "manual")
}

// SchedulerStatus is a snapshot of the scheduler and the sync state.
type SchedulerStatus struct {
	IsRunning      bool                `json:"isRunning"`
	IsOnline       bool                `json:"isOnline"`
	OfflineMode    bool                `json:"offlineMode"`
	AutoSync       bool                `json:"autoSync"`
	LastSyncTime   *time.Time          `json:"lastSyncTime,omitempty"`
	LastRunTime    *time.Time          `json:"lastRunTime,omitempty"`
	SyncInProgress bool                `json:"syncInProgress"`
	PendingItems   int                 `json:"pendingItems"`
	LastError      string              `json:"lastError,omitempty"`
	LastResult     *syncpkg.SyncResult `json:"lastResult,omitempty"`
}

// Status returns the current status of the scheduler.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.RLock()
	status := SchedulerStatus{
		IsRunning:  s.isRunning,
		AutoSync:   s.autoSync,
		LastResult: s.lastResult,
	}
	if !s.lastSyncTime.IsZero() {
		t := s.lastSyncTime
		status.LastRunTime = &t
	}
	s.mu.RUnlock()

	status.IsOnline = s.monitor.IsConnected()
	status.OfflineMode = s.monitor.OfflineMode()
	status.LastSyncTime = s.engine.LastSync()
	status.SyncInProgress = s.engine.Status() == syncpkg.SyncStatusSyncing
	status.PendingItems = s.engine.PendingChanges()
	if err := s.engine.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
