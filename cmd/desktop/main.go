// Package main runs the StockFlow desktop sidecar. The desktop UI talks to
// it over REST and WebSocket on localhost; it talks to the remote inventory
// API and keeps working from the local store while that API is unreachable.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/arbitroy/stockflow/backend/cmd/desktop/handlers"
	"github.com/arbitroy/stockflow/backend/internal/api"
	"github.com/arbitroy/stockflow/backend/internal/cache"
	"github.com/arbitroy/stockflow/backend/internal/config"
	"github.com/arbitroy/stockflow/backend/internal/connection"
	"github.com/arbitroy/stockflow/backend/internal/db"
	"github.com/arbitroy/stockflow/backend/internal/inventory"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/metrics"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	syncpkg "github.com/arbitroy/stockflow/backend/internal/sync"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/sync/scheduler"
)

const shutdownTimeout = 5 * time.Second

func main() {
	settings, err := config.Load()
	if err != nil {
		logging.Init(os.Stderr, logging.LevelError)
		logging.Error("invalid configuration", err)
		os.Exit(1)
	}
	logging.Init(os.Stdout, logging.ParseLevel(settings.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings); err != nil {
		logging.Error("sidecar stopped", err)
		os.Exit(1)
	}
}

// app holds the wired sync core.
type app struct {
	monitor   *connection.Monitor
	queue     *queue.Queue
	cache     *cache.Cache
	engine    *syncpkg.Engine
	scheduler *scheduler.Scheduler
	inventory *inventory.Service
	hub       *notify.Hub
	registry  *prometheus.Registry
}

// newApp wires the sync core over an opened store.
func newApp(settings *config.Settings, store db.Store) *app {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	hub := notify.NewHub()
	notifier := notify.Multi{notify.Log{}, hub}

	monitor := connection.NewMonitor(connection.Config{
		HealthURL:    settings.BaseURL() + "/health",
		ProbeTimeout: settings.ProbeTimeout,
		OfflineMode:  settings.OfflineMode,
		Metrics:      m,
	})
	client := api.NewClient(api.Config{
		BaseURL:  settings.BaseURL(),
		Timeout:  settings.RequestTimeout,
		Observer: monitor,
		Metrics:  m,
	})

	q := queue.New(store, queue.Options{MaxSize: settings.QueueMaxSize, Notifier: notifier, Metrics: m})
	q.Load()
	c := cache.New(store)
	c.Seed()

	engine := syncpkg.NewEngine(syncpkg.Config{
		Queue:      q,
		Cache:      c,
		Remote:     client,
		Connection: monitor,
		Notifier:   notifier,
		Metrics:    m,
	})
	sched := scheduler.NewScheduler(engine, monitor, &scheduler.SchedulerConfig{
		SyncInterval:  settings.SyncInterval,
		ProbeInterval: settings.ProbeInterval(),
		AutoSync:      settings.AutoSync,
		Notifier:      notifier,
	})
	svc := inventory.NewService(inventory.Config{
		Remote:            client,
		Cache:             c,
		Queue:             q,
		Connection:        monitor,
		Notifier:          notifier,
		Metrics:           m,
		LowStockThreshold: settings.LowStockThreshold,
	})

	return &app{
		monitor:   monitor,
		queue:     q,
		cache:     c,
		engine:    engine,
		scheduler: sched,
		inventory: svc,
		hub:       hub,
		registry:  registry,
	}
}

func (a *app) handler() http.Handler {
	return newRouter(routes{
		stock:     handlers.NewStockHandler(a.inventory),
		sales:     handlers.NewSalesHandler(a.inventory),
		locations: handlers.NewLocationHandler(a.inventory),
		sync:      handlers.NewSyncHandler(a.scheduler, a.queue, a.monitor),
		ws:        a.hub,
		gatherer:  a.registry,
	})
}

func run(ctx context.Context, settings *config.Settings) error {
	database, err := db.Open(settings.DataDir)
	if err != nil {
		return err
	}
	defer database.Close()

	store := db.NewSQLiteStore(database)
	defer store.Close()

	a := newApp(settings, store)
	srv := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.scheduler.Start(ctx)
		<-ctx.Done()
		a.scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		logging.Info("StockFlow desktop sidecar starting", map[string]interface{}{
			"addr":         settings.ListenAddr,
			"api_url":      settings.BaseURL(),
			"offline_mode": settings.OfflineMode,
			"pending":      a.queue.Size(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
