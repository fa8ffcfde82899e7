// Package main provides the StockFlow core maintenance tool. It works on a
// sidecar's data directory without the desktop UI:
// - list the pending offline actions
// - drain the offline queue once against the remote API
// - roll back the latest schema migration before a downgrade
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arbitroy/stockflow/backend/internal/api"
	"github.com/arbitroy/stockflow/backend/internal/cache"
	"github.com/arbitroy/stockflow/backend/internal/config"
	"github.com/arbitroy/stockflow/backend/internal/connection"
	"github.com/arbitroy/stockflow/backend/internal/db"
	"github.com/arbitroy/stockflow/backend/internal/logging"
	syncpkg "github.com/arbitroy/stockflow/backend/internal/sync"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	showQueue := flag.Bool("queue", false, "list pending offline actions")
	drain := flag.Bool("sync", false, "drain the offline queue once")
	migrateDown := flag.Bool("migrate-down", false, "roll back the latest schema migration and exit")
	flag.Parse()

	fmt.Printf("StockFlow Core v%s\n", Version)

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(os.Stderr, logging.ParseLevel(settings.LogLevel))

	database, err := db.Open(settings.DataDir)
	if err != nil {
		logging.Error("failed to open data directory", err, map[string]interface{}{"dir": settings.DataDir})
		os.Exit(1)
	}
	defer database.Close()

	if *migrateDown {
		if err := rollbackSchema(os.Stdout, database); err != nil {
			logging.Error("rollback failed", err)
			os.Exit(1)
		}
		return
	}

	store := db.NewSQLiteStore(database)
	defer store.Close()

	q := queue.New(store, queue.Options{})
	q.Load()

	if *showQueue {
		printQueue(os.Stdout, q)
	}
	if *drain {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := drainOnce(ctx, os.Stdout, settings, store, q); err != nil {
			logging.Error("sync failed", err)
			os.Exit(1)
		}
	}
	if !*showQueue && !*drain {
		fmt.Printf("%s pending offline actions\n", humanize.Comma(int64(q.Size())))
	}
}

// printQueue writes one line per pending action in replay order.
func printQueue(w io.Writer, q *queue.Queue) {
	actions := q.List()
	if len(actions) == 0 {
		fmt.Fprintln(w, "offline queue is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tQUEUED\tATTEMPTS\tLAST ERROR")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			a.ID, queue.Describe(a), humanize.Time(a.QueuedAt()), a.Attempts, a.LastError)
	}
	tw.Flush()
}

// drainOnce probes the remote API and replays the queue a single time.
func drainOnce(ctx context.Context, w io.Writer, settings *config.Settings, store db.Store, q *queue.Queue) error {
	monitor := connection.NewMonitor(connection.Config{
		HealthURL:    settings.BaseURL() + "/health",
		ProbeTimeout: settings.ProbeTimeout,
	})
	client := api.NewClient(api.Config{
		BaseURL:  settings.BaseURL(),
		Timeout:  settings.RequestTimeout,
		Observer: monitor,
	})
	engine := syncpkg.NewEngine(syncpkg.Config{
		Queue:      q,
		Cache:      cache.New(store),
		Remote:     client,
		Connection: monitor,
	})

	monitor.CheckConnection(ctx)
	result, err := engine.ProcessQueue(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "replayed %d of %d actions in %s (%d failed, %d skipped)\n",
		result.Succeeded, result.Total(), result.Duration.Round(time.Millisecond), result.Failed, result.Skipped)
	for _, f := range result.Failures {
		fmt.Fprintf(w, "  %s %s %s: %s\n", f.ActionID, f.Type, f.Entity, f.Error)
	}
	return nil
}

// rollbackSchema undoes the latest applied migration. The next Open applies
// it again, so this is only useful right before running an older binary.
func rollbackSchema(w io.Writer, database *db.DB) error {
	m := db.NewMigrator(database.DB, db.Migrations())
	from, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil {
		return err
	}
	to, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema rolled back from v%d to v%d\n", from, to)
	return nil
}
