// Package notify fans out user-facing notifications about connectivity,
// queueing and synchronization.
package notify

import (
	"sync"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/logging"
)

// Event types.
const (
	EventQueued             = "queue.queued"
	EventSyncStarted        = "sync.started"
	EventSyncCompleted      = "sync.completed"
	EventSyncFailed         = "sync.failed"
	EventCacheFallback      = "cache.fallback"
	EventConnectionRestored = "connection.restored"
	EventConnectionLost     = "connection.lost"
	EventDefaultLocations   = "locations.defaults"
)

// Level is the severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one notification.
type Event struct {
	Type      string                 `json:"type"`
	Level     Level                  `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(e Event)
}

// Func adapts a function to Notifier.
type Func func(Event)

// Notify implements Notifier.
func (f Func) Notify(e Event) { f(e) }

// New builds an event stamped with the current time.
func New(eventType string, level Level, message string, data map[string]interface{}) Event {
	return Event{
		Type:      eventType,
		Level:     level,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Multi sends every event to each notifier in order. Nil entries are skipped.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// Nop drops every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(Event) {}

// Log writes events to the structured log.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(e Event) {
	ctx := map[string]interface{}{"event": e.Type}
	for k, v := range e.Data {
		ctx[k] = v
	}
	switch e.Level {
	case LevelError:
		logging.Error(e.Message, nil, ctx)
	case LevelWarning:
		logging.Warn(e.Message, ctx)
	default:
		logging.Info(e.Message, ctx)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
