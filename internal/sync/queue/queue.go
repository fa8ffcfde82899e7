// Package queue provides the durable FIFO queue of mutations made while the
// remote API was unreachable.
package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/db"
	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/metrics"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// StoreKey is the store key holding the persisted queue.
const StoreKey = "action_queue"

// ErrQueueFull is returned by Enqueue when MaxSize entries are pending.
var ErrQueueFull = apperrors.New(apperrors.ErrQueueFull, "offline queue is full")

// Options configures a Queue.
type Options struct {
	// MaxSize caps the number of pending actions. Zero means unbounded.
	MaxSize  int
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// Queue is the ordered list of pending actions, mirrored to the store after
// every change.
type Queue struct {
	store    db.Store
	maxSize  int
	notifier notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	actions []*Action
}

// New creates an empty Queue over store. Call Load to hydrate it.
func New(store db.Store, opts Options) *Queue {
	n := opts.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &Queue{
		store:    store,
		maxSize:  opts.MaxSize,
		notifier: n,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Load replaces the in-memory queue with the persisted one. Entries that
// cannot be decoded or carry no valid action id are dropped with a warning;
// a missing or corrupt queue loads as empty.
func (q *Queue) Load() {
	var raw []json.RawMessage
	loaded := q.store.Load(StoreKey, &raw)

	actions := make([]*Action, 0, len(raw))
	for i, r := range raw {
		var a Action
		if err := json.Unmarshal(r, &a); err != nil {
			logging.Warn("queue: dropping undecodable action", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		if err := uuid.Validate(a.ID); err != nil {
			logging.Warn("queue: dropping action without a valid id", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		actions = append(actions, &a)
	}

	q.mu.Lock()
	q.actions = actions
	q.mu.Unlock()

	q.metrics.SetQueueDepth(len(actions))
	if loaded {
		logging.Info("queue loaded", map[string]interface{}{"pending": len(actions)})
	}
}

// Persist writes the in-memory queue to the store.
func (q *Queue) Persist() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.persistLocked()
}

func (q *Queue) persistLocked() {
	out := make([]Action, len(q.actions))
	for i, a := range q.actions {
		out[i] = *a
	}
	q.store.Save(StoreKey, out)
	q.metrics.SetQueueDepth(len(out))
}

// Enqueue appends payload as a new action and persists the queue.
func (q *Queue) Enqueue(payload Payload) (*Action, error) {
	if payload == nil {
		return nil, apperrors.New(apperrors.ErrInvalidAction, "nil payload")
	}

	q.mu.Lock()
	if q.maxSize > 0 && len(q.actions) >= q.maxSize {
		q.mu.Unlock()
		return nil, ErrQueueFull
	}

	a := &Action{
		ID:        uuid.New(),
		Type:      payload.ActionType(),
		Entity:    payload.EntityType(),
		Payload:   payload,
		Timestamp: q.now().UnixMilli(),
	}
	q.actions = append(q.actions, a)
	q.persistLocked()
	pending := len(q.actions)
	q.mu.Unlock()

	q.metrics.ActionEnqueued(string(a.Type), string(a.Entity))
	logging.Debug("queue: action enqueued", map[string]interface{}{
		"id":     a.ID,
		"type":   a.Type,
		"entity": a.Entity,
	})
	q.notifier.Notify(notify.New(notify.EventQueued, notify.LevelInfo,
		"Change saved offline and queued for sync",
		map[string]interface{}{
			"id":      a.ID,
			"type":    string(a.Type),
			"entity":  string(a.Entity),
			"pending": pending,
		}))

	c := *a
	return &c, nil
}

// Remove deletes the action with id and persists the queue.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, a := range q.actions {
		if a.ID == id {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			q.persistLocked()
			return nil
		}
	}
	return apperrors.Newf(apperrors.ErrNotFound, "action %s not found", id)
}

// RecordFailure stores the outcome of a failed replay on the action and
// persists the queue.
func (q *Queue) RecordFailure(id string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, a := range q.actions {
		if a.ID == id {
			a.Attempts++
			a.LastAttemptAt = q.now().UnixMilli()
			if err != nil {
				a.LastError = err.Error()
			}
			q.persistLocked()
			return
		}
	}
}

// Rewrite replaces each action's payload with fn's result and persists the
// queue when anything changed. fn returns changed=false to leave a payload
// alone.
func (q *Queue) Rewrite(fn func(p Payload) (Payload, bool)) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, a := range q.actions {
		if p, changed := fn(a.Payload); changed {
			a.Payload = p
			n++
		}
	}
	if n > 0 {
		q.persistLocked()
	}
	return n
}

// List returns copies of the pending actions in FIFO order.
func (q *Queue) List() []Action {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Action, len(q.actions))
	for i, a := range q.actions {
		out[i] = *a
	}
	return out
}

// Snapshot is List under the name the sync engine uses for a drain pass.
func (q *Queue) Snapshot() []Action {
	return q.List()
}

// Get returns a copy of the action with id.
func (q *Queue) Get(id string) (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, a := range q.actions {
		if a.ID == id {
			return *a, true
		}
	}
	return Action{}, false
}

// Size returns the number of pending actions.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Stats counts pending actions per entity.
func (q *Queue) Stats() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := map[string]int{"total": len(q.actions), "failing": 0}
	for _, a := range q.actions {
		stats[string(a.Entity)]++
		if a.LastError != "" {
			stats["failing"]++
		}
	}
	return stats
}

// Describe renders an action for logs and the queue listing.
func Describe(a Action) string {
	return fmt.Sprintf("%s %s", a.Type, a.Entity)
}
