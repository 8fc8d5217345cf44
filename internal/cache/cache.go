// Package cache holds the snapshot cache and the cross-process task
// lock. Both come in two flavors: redis for multi-node deployments and
// an in-memory variant for tests and single-node runs. Snapshots are
// expendable; everything in here can be rebuilt from the event log.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is one serialized game state pinned to an event number.
type Snapshot struct {
	TableID     string
	EventNumber int64
	State       []byte
}

// Lookup is the result of a nearest-prior search.
type Lookup struct {
	Snapshot Snapshot
	// Exact reports whether the snapshot sits at the requested event
	// number rather than before it.
	Exact bool
}

// SnapshotCache stores serialized game states keyed by table and event
// number.
type SnapshotCache interface {
	// Store writes the batch, refreshing TTLs.
	Store(ctx context.Context, snapshots []Snapshot) error
	// GetExactOrNearest returns the snapshot at eventNumber, or the one
	// with the highest event number below it. The second return is
	// false when nothing usable is cached.
	GetExactOrNearest(ctx context.Context, tableID string, eventNumber int64) (Lookup, bool, error)
}

// TaskLock is a TTL-bounded advisory lock shared between processes.
// SetLock never blocks: it reports false when the lock is already held.
type TaskLock interface {
	SetLock(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

const (
	// SnapshotTTL bounds how long a snapshot outlives its last write.
	SnapshotTTL = 6 * time.Hour
	// LockTTL bounds how long a crashed holder can wedge a task.
	LockTTL = 60 * time.Second
)

func snapshotKey(tableID string, eventNumber int64) string {
	return fmt.Sprintf("game_state_snapshot:%s:%d", tableID, eventNumber)
}

func indexKey(tableID string) string {
	return "index:zset:table_id:" + tableID
}
