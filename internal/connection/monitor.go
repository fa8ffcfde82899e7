// Package connection tracks whether the remote inventory API is reachable.
package connection

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/metrics"
)

// DefaultProbeTimeout bounds a health probe. It is shorter than the data
// request timeout so reachability is decided quickly.
const DefaultProbeTimeout = 5 * time.Second

// State is a snapshot of the last known reachability.
type State struct {
	IsConnected bool       `json:"isConnected"`
	LastChecked *time.Time `json:"lastChecked"`
}

// Listener is called after IsConnected changes.
type Listener func(prev, next State)

// Config configures a Monitor.
type Config struct {
	// HealthURL is probed with GET; any 2xx response means connected.
	HealthURL    string
	ProbeTimeout time.Duration
	// OfflineMode forces the monitor offline and skips probes.
	OfflineMode bool
	HTTPClient  *http.Client
	Metrics     *metrics.Metrics
}

// Monitor owns the connection state. It is the only writer; everyone else reads.
type Monitor struct {
	healthURL    string
	probeTimeout time.Duration
	client       *http.Client
	metrics      *metrics.Metrics

	mu          sync.RWMutex
	state       State
	offlineMode bool
	listeners   map[int]Listener
	nextID      int
	now         func() time.Time
}

// NewMonitor creates a Monitor. It starts disconnected with no LastChecked
// until the first probe or traffic observation.
func NewMonitor(cfg Config) *Monitor {
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Monitor{
		healthURL:    cfg.HealthURL,
		probeTimeout: timeout,
		client:       client,
		metrics:      cfg.Metrics,
		offlineMode:  cfg.OfflineMode,
		listeners:    make(map[int]Listener),
		now:          time.Now,
	}
}

// CheckConnection probes the health endpoint and records the result.
// It never returns an error: every failure reads as disconnected.
func (m *Monitor) CheckConnection(ctx context.Context) bool {
	if m.OfflineMode() {
		m.update(false, true)
		return false
	}

	ok := m.probe(ctx)
	m.metrics.ObserveProbe(ok)
	m.update(ok, true)
	return ok
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.healthURL, nil)
	if err != nil {
		logging.Debug("connection probe: bad request", map[string]interface{}{"error": err.Error()})
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		logging.Debug("connection probe failed", map[string]interface{}{
			"url":   m.healthURL,
			"error": err.Error(),
		})
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// SetConnected overrides the state. In offline mode the monitor stays offline.
func (m *Monitor) SetConnected(connected bool) {
	m.update(connected, false)
}

// SetOfflineMode toggles forced offline mode. Enabling it disconnects immediately.
func (m *Monitor) SetOfflineMode(enabled bool) {
	m.mu.Lock()
	m.offlineMode = enabled
	m.mu.Unlock()
	if enabled {
		m.update(false, false)
	}
}

// OfflineMode reports whether forced offline mode is on.
func (m *Monitor) OfflineMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offlineMode
}

// State returns a snapshot of the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	if s.LastChecked != nil {
		t := *s.LastChecked
		s.LastChecked = &t
	}
	return s
}

// IsConnected reports the last known reachability.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsConnected
}

// Subscribe registers l for transitions and returns a function that removes it.
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// ObserveResponse records that the API answered (any status).
func (m *Monitor) ObserveResponse(status int) {
	m.update(true, false)
}

// ObserveFailure records a transport-level failure talking to the API.
func (m *Monitor) ObserveFailure(err error) {
	logging.Debug("api unreachable", map[string]interface{}{"error": err.Error()})
	m.update(false, false)
}

// update applies a new reachability value and notifies listeners on change.
// Listeners run on the caller's goroutine, outside the lock.
func (m *Monitor) update(connected, checked bool) {
	m.mu.Lock()
	if m.offlineMode {
		connected = false
	}
	prev := m.state
	m.state.IsConnected = connected
	if checked {
		now := m.now()
		m.state.LastChecked = &now
	}
	next := m.state

	var listeners []Listener
	if prev.IsConnected != next.IsConnected {
		listeners = make([]Listener, 0, len(m.listeners))
		for _, l := range m.listeners {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	if prev.IsConnected == next.IsConnected {
		return
	}

	m.metrics.SetOnline(connected)
	logging.Info("connection state changed", map[string]interface{}{
		"online": connected,
	})
	for _, l := range listeners {
		l(prev, next)
	}
}
