package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory implements SnapshotCache and TaskLock in process memory.
// Snapshots live in a TTL'd LRU; a per-table sorted index provides the
// nearest-prior lookup. Index entries whose value the LRU already
// dropped are pruned lazily during lookups.
type Memory struct {
	mu    sync.Mutex
	lru   *expirable.LRU[string, []byte]
	index map[string][]int64
	locks map[string]time.Time
	clock quartz.Clock
}

// NewMemory builds an in-memory cache holding at most capacity
// snapshots.
func NewMemory(capacity int, clock quartz.Clock) *Memory {
	return &Memory{
		lru:   expirable.NewLRU[string, []byte](capacity, nil, SnapshotTTL),
		index: map[string][]int64{},
		locks: map[string]time.Time{},
		clock: clock,
	}
}

// Store implements SnapshotCache.
func (m *Memory) Store(_ context.Context, snapshots []Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, snap := range snapshots {
		m.lru.Add(snapshotKey(snap.TableID, snap.EventNumber), slices.Clone(snap.State))
		numbers := m.index[snap.TableID]
		if i, found := slices.BinarySearch(numbers, snap.EventNumber); !found {
			m.index[snap.TableID] = slices.Insert(numbers, i, snap.EventNumber)
		}
	}
	return nil
}

// GetExactOrNearest implements SnapshotCache.
func (m *Memory) GetExactOrNearest(_ context.Context, tableID string, eventNumber int64) (Lookup, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	numbers := m.index[tableID]
	i, found := slices.BinarySearch(numbers, eventNumber)
	if !found {
		i--
	}
	for ; i >= 0; i-- {
		number := numbers[i]
		data, ok := m.lru.Get(snapshotKey(tableID, number))
		if !ok {
			numbers = slices.Delete(numbers, i, i+1)
			m.index[tableID] = numbers
			continue
		}
		return Lookup{
			Snapshot: Snapshot{TableID: tableID, EventNumber: number, State: slices.Clone(data)},
			Exact:    number == eventNumber,
		}, true, nil
	}
	return Lookup{}, false, nil
}

// SetLock implements TaskLock. Expired locks count as free.
func (m *Memory) SetLock(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if expiry, held := m.locks[key]; held && now.Before(expiry) {
		return false, nil
	}
	m.locks[key] = now.Add(LockTTL)
	return true, nil
}

// Release implements TaskLock.
func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}
