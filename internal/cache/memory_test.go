package cache

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExactOrNearest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(128, quartz.NewReal())

	require.NoError(t, m.Store(ctx, []Snapshot{
		{TableID: "t1", EventNumber: 10, State: []byte("s10")},
		{TableID: "t1", EventNumber: 20, State: []byte("s20")},
		{TableID: "t1", EventNumber: 30, State: []byte("s30")},
		{TableID: "t2", EventNumber: 15, State: []byte("other")},
	}))

	t.Run("exact hit", func(t *testing.T) {
		lookup, ok, err := m.GetExactOrNearest(ctx, "t1", 20)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, lookup.Exact)
		assert.Equal(t, int64(20), lookup.Snapshot.EventNumber)
		assert.Equal(t, []byte("s20"), lookup.Snapshot.State)
	})

	t.Run("nearest prior", func(t *testing.T) {
		lookup, ok, err := m.GetExactOrNearest(ctx, "t1", 25)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, lookup.Exact)
		assert.Equal(t, int64(20), lookup.Snapshot.EventNumber)
	})

	t.Run("above the highest", func(t *testing.T) {
		lookup, ok, err := m.GetExactOrNearest(ctx, "t1", 99)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, lookup.Exact)
		assert.Equal(t, int64(30), lookup.Snapshot.EventNumber)
	})

	t.Run("below the lowest misses", func(t *testing.T) {
		_, ok, err := m.GetExactOrNearest(ctx, "t1", 5)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("tables are isolated", func(t *testing.T) {
		lookup, ok, err := m.GetExactOrNearest(ctx, "t2", 100)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(15), lookup.Snapshot.EventNumber)
	})

	t.Run("unknown table misses", func(t *testing.T) {
		_, ok, err := m.GetExactOrNearest(ctx, "nope", 100)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(128, quartz.NewReal())

	batch := []Snapshot{{TableID: "t1", EventNumber: 7, State: []byte("v1")}}
	require.NoError(t, m.Store(ctx, batch))
	require.NoError(t, m.Store(ctx, []Snapshot{{TableID: "t1", EventNumber: 7, State: []byte("v2")}}))

	lookup, ok, err := m.GetExactOrNearest(ctx, "t1", 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), lookup.Snapshot.State)
	assert.Len(t, m.index["t1"], 1)
}

func TestEvictedSnapshotIsPrunedFromIndex(t *testing.T) {
	ctx := context.Background()
	// capacity 2: adding a third snapshot evicts the oldest
	m := NewMemory(2, quartz.NewReal())

	require.NoError(t, m.Store(ctx, []Snapshot{
		{TableID: "t1", EventNumber: 1, State: []byte("a")},
		{TableID: "t1", EventNumber: 2, State: []byte("b")},
		{TableID: "t1", EventNumber: 3, State: []byte("c")},
	}))

	lookup, ok, err := m.GetExactOrNearest(ctx, "t1", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), lookup.Snapshot.EventNumber)

	// event 1 was evicted; nearest for 1 is a miss and the index entry
	// goes away with it
	_, ok, err = m.GetExactOrNearest(ctx, "t1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, m.index["t1"], int64(1))
}

func TestTaskLock(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m := NewMemory(8, clock)

	acquired, err := m.SetLock(ctx, "job:t1:0:100")
	require.NoError(t, err)
	assert.True(t, acquired)

	t.Run("second holder refused", func(t *testing.T) {
		acquired, err := m.SetLock(ctx, "job:t1:0:100")
		require.NoError(t, err)
		assert.False(t, acquired)
	})

	t.Run("different key is independent", func(t *testing.T) {
		acquired, err := m.SetLock(ctx, "job:t1:100:200")
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("release frees", func(t *testing.T) {
		require.NoError(t, m.Release(ctx, "job:t1:0:100"))
		acquired, err := m.SetLock(ctx, "job:t1:0:100")
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("expiry frees", func(t *testing.T) {
		clock.Advance(LockTTL + time.Second)
		acquired, err := m.SetLock(ctx, "job:t1:0:100")
		require.NoError(t, err)
		assert.True(t, acquired)
	})
}
