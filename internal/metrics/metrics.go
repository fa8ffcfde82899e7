// Package metrics exposes Prometheus collectors for the sync core.
//
// All recording methods are safe on a nil *Metrics so components can run
// without a registry in tests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockflow"

// Metrics groups every collector the sidecar exports.
type Metrics struct {
	probesTotal        *prometheus.CounterVec
	online             prometheus.Gauge
	queueDepth         prometheus.Gauge
	actionsEnqueued    *prometheus.CounterVec
	replayTotal        *prometheus.CounterVec
	syncDuration       prometheus.Histogram
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	cacheFallbacks     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		probesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_probes_total",
			Help:      "Health probes against the remote API, labeled by result",
		}, []string{"result"}),
		online: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_online",
			Help:      "1 when the remote API is considered reachable",
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Offline actions waiting for replay",
		}),
		actionsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_enqueued_total",
			Help:      "Offline actions enqueued, labeled by type and entity",
		}, []string{"type", "entity"}),
		replayTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_replays_total",
			Help:      "Replayed actions, labeled by entity and outcome",
		}, []string{"entity", "result"}),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of queue drains",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		apiRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Remote API requests, labeled by method, route and status",
		}, []string{"method", "route", "status"}),
		apiRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency distribution of remote API requests",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
		}, []string{"method", "route"}),
		cacheFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fallbacks_total",
			Help:      "Reads served from the local cache after a remote failure",
		}, []string{"collection"}),
	}
}

// ObserveProbe records a health probe outcome.
func (m *Metrics) ObserveProbe(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.probesTotal.WithLabelValues(result).Inc()
}

// SetOnline records the current connection state.
func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.online.Set(1)
	} else {
		m.online.Set(0)
	}
}

// SetQueueDepth records the number of pending actions.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// ActionEnqueued counts a new offline action.
func (m *Metrics) ActionEnqueued(actionType, entity string) {
	if m == nil {
		return
	}
	m.actionsEnqueued.WithLabelValues(actionType, entity).Inc()
}

// Replay outcomes.
const (
	ReplaySucceeded = "succeeded"
	ReplayFailed    = "failed"
	ReplaySkipped   = "skipped"
)

// ObserveReplay counts one replayed action.
func (m *Metrics) ObserveReplay(entity, result string) {
	if m == nil {
		return
	}
	m.replayTotal.WithLabelValues(entity, result).Inc()
}

// ObserveSync records a drain's duration.
func (m *Metrics) ObserveSync(d time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(d.Seconds())
}

// ObserveAPIRequest records a remote call. status is 0 for transport failures.
func (m *Metrics) ObserveAPIRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.apiRequestsTotal.WithLabelValues(method, route, label).Inc()
	m.apiRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// CacheFallback counts a read served from cache.
func (m *Metrics) CacheFallback(collection string) {
	if m == nil {
		return
	}
	m.cacheFallbacks.WithLabelValues(collection).Inc()
}
