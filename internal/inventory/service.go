// Package inventory is the optimistic apply layer: every operation the
// desktop UI performs on stock, sales, locations and transfers goes through
// here. Mutations go straight to the remote API while it is reachable and
// are applied to the local cache and queued for replay while it is not.
// Reads prefer the remote API and fall back to the cache.
package inventory

import (
	"time"

	"github.com/arbitroy/stockflow/backend/internal/api"
	"github.com/arbitroy/stockflow/backend/internal/cache"
	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/metrics"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// Connectivity reports the connection state the service routes on.
type Connectivity interface {
	IsConnected() bool
	OfflineMode() bool
}

// Config wires a Service.
type Config struct {
	Remote     api.Remote
	Cache      *cache.Cache
	Queue      *queue.Queue
	Connection Connectivity
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
	// LowStockThreshold is the quantity at or below which an item is LOW_STOCK.
	LowStockThreshold int
}

// Service applies inventory operations online or offline.
type Service struct {
	remote    api.Remote
	cache     *cache.Cache
	queue     *queue.Queue
	conn      Connectivity
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	threshold int
	now       func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	n := cfg.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = models.DefaultLowStockThreshold
	}
	return &Service{
		remote:    cfg.Remote,
		cache:     cfg.Cache,
		queue:     cfg.Queue,
		conn:      cfg.Connection,
		notifier:  n,
		metrics:   cfg.Metrics,
		threshold: threshold,
		now:       time.Now,
	}
}

// direct reports whether a mutation should be sent to the remote API now.
// Mutations touching a provisional id are always queued so they replay
// after the CREATE that introduces it.
func (s *Service) direct(ids ...string) bool {
	if !s.conn.IsConnected() {
		return false
	}
	for _, id := range ids {
		if uuid.IsTemporary(id) {
			return false
		}
	}
	return true
}

// tryRemote reports whether a read should hit the remote API first.
func (s *Service) tryRemote() bool {
	return !s.conn.OfflineMode()
}

// errOfflineMode stands in for the remote error when forced offline mode
// skips the API.
var errOfflineMode error = apperrors.New(apperrors.ErrConnectivity, "offline mode is enabled")

// offlineFallback reports whether a failed direct mutation should be
// retried through the queue.
func offlineFallback(err error) bool {
	return apperrors.IsConnectivity(err)
}

// cacheFallback reports whether a failed read may be served from cache.
// Answers about the entity itself (not found, invalid) are passed through.
func cacheFallback(err error) bool {
	return apperrors.IsConnectivity(err) || apperrors.Is(err, apperrors.ErrRemote)
}

// usingCache announces that a read was served from the cache.
func (s *Service) usingCache(collection string, err error) {
	s.metrics.CacheFallback(collection)
	logging.Warn("serving cached data", map[string]interface{}{
		"collection": collection,
		"cause":      err.Error(),
	})
	s.notifier.Notify(notify.New(notify.EventCacheFallback, notify.LevelWarning,
		"Using cached data", map[string]interface{}{"collection": collection}))
}

func (s *Service) status(quantity int) models.StockStatus {
	return models.DeriveStatus(quantity, s.threshold)
}

func (s *Service) timestamp() string {
	return models.FormatTime(s.now())
}

func invalid(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.ErrInvalid, format, args...)
}

func notFound(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.ErrNotFound, format, args...)
}

func insufficient(available int) error {
	return apperrors.Newf(apperrors.ErrInsufficientStock, "Insufficient stock. Available: %d", available)
}

func validation(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.ErrValidation, format, args...)
}
