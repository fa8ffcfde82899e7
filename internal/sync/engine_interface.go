// Package sync replays queued offline mutations against the remote API.
package sync

import (
	"context"
	"time"
)

// Syncer is the part of Engine the scheduler and the sidecar handlers use.
// It allows alternative implementations in tests.
type Syncer interface {
	// ProcessQueue drains the offline queue once.
	// It returns ErrSyncInProgress or SYNC_SKIPPED errors when no pass ran.
	ProcessQueue(ctx context.Context) (*SyncResult, error)

	// Status returns the current engine status.
	Status() SyncStatus

	// LastSync returns the completion time of the last pass without failures.
	LastSync() *time.Time

	// PendingChanges returns the number of queued actions.
	PendingChanges() int

	// LastError returns the last replay error, nil after a clean pass.
	LastError() error
}

var _ Syncer = (*Engine)(nil)
