package manager

import (
	"context"
	"io"
	rand "math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/cache"
	"github.com/gatismeikulis/card-game-app/internal/game/fivehundred"
	"github.com/gatismeikulis/card-game-app/internal/randutil"
	"github.com/gatismeikulis/card-game-app/internal/store"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

func newTestManager(t *testing.T) (*Manager, *cache.Memory) {
	t.Helper()
	s, err := store.NewSQLite(context.Background(), ":memory:", log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	snapshots := cache.NewMemory(256, quartz.NewReal())
	m := New(s, s, snapshots, log.New(io.Discard))
	var seed int64
	m.newRNG = func() *rand.Rand {
		seed++
		return randutil.New(seed)
	}
	return m, snapshots
}

func createSeatedTable(t *testing.T, m *Manager) *table.Table {
	t.Helper()
	ctx := context.Background()
	tbl, err := m.AddTable(ctx, "owner", "five_hundred", nil, nil)
	require.NoError(t, err)
	_, err = m.JoinTable(ctx, tbl.ID, "owner", "Alice", 1)
	require.NoError(t, err)
	_, err = m.JoinTable(ctx, tbl.ID, "u2", "Bob", 2)
	require.NoError(t, err)
	tbl, err = m.JoinTable(ctx, tbl.ID, "u3", "Cara", 3)
	require.NoError(t, err)
	return tbl
}

func TestAddAndGetTable(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	tbl, err := m.AddTable(ctx, "owner", "five_hundred", nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, tbl.ID)

	found, err := m.GetTable(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, tbl.ID, found.ID)
	assert.Equal(t, table.StatusNotStarted, found.Status)

	t.Run("unknown game refused", func(t *testing.T) {
		_, err := m.AddTable(ctx, "owner", "whist", nil, nil)
		assert.Equal(t, "unknown_game_name", apperr.ReasonOf(err))
	})
}

func TestJoinAndLeave(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tbl, err := m.AddTable(ctx, "owner", "five_hundred", nil, nil)
	require.NoError(t, err)

	joined, err := m.JoinTable(ctx, tbl.ID, "u2", "Bob", 2)
	require.NoError(t, err)
	require.Len(t, joined.Players, 1)

	t.Run("errors carry the operation", func(t *testing.T) {
		_, err := m.JoinTable(ctx, tbl.ID, "u2", "Bob", 3)
		require.Error(t, err)
		assert.Equal(t, "already_seated", apperr.ReasonOf(err))
		assert.Contains(t, err.Error(), "join_table")
	})

	left, err := m.LeaveTable(ctx, tbl.ID, "u2")
	require.NoError(t, err)
	assert.Empty(t, left.Players)
}

func TestRemoveTable(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tbl := createSeatedTable(t, m)

	t.Run("owner only", func(t *testing.T) {
		err := m.RemoveTable(ctx, tbl.ID, "u2")
		assert.Equal(t, "not_owner", apperr.ReasonOf(err))
	})

	t.Run("not while in progress", func(t *testing.T) {
		_, _, err := m.StartGame(ctx, tbl.ID, "owner")
		require.NoError(t, err)
		err = m.RemoveTable(ctx, tbl.ID, "owner")
		assert.Equal(t, "wrong_table_status", apperr.ReasonOf(err))
	})

	_, _, err := m.CancelGame(ctx, tbl.ID, "owner")
	require.NoError(t, err)
	require.NoError(t, m.RemoveTable(ctx, tbl.ID, "owner"))

	_, err = m.GetTable(ctx, tbl.ID)
	assert.Equal(t, "table_not_found", apperr.ReasonOf(err))
}

func TestStartGameAndTurns(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tbl := createSeatedTable(t, m)

	started, events, err := m.StartGame(ctx, tbl.ID, "owner")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "deck_shuffled", events[0].EventType())
	assert.Equal(t, table.StatusInProgress, started.Status)

	t.Run("off-turn command rejected and logged nothing", func(t *testing.T) {
		_, _, err := m.TakeRegularTurn(ctx, tbl.ID, "u2", "make_bid", map[string]any{"bid": -1})
		assert.Equal(t, "not_your_turn", apperr.ReasonOf(err))
	})

	updated, turnEvents, err := m.TakeRegularTurn(ctx, tbl.ID, "owner", "make_bid", map[string]any{"bid": -1})
	require.NoError(t, err)
	require.Len(t, turnEvents, 1)
	assert.Equal(t, 2, updated.State.ActiveSeatNumber())
}

func TestBotTurnThroughManager(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tbl, err := m.AddTable(ctx, "owner", "five_hundred", nil, nil)
	require.NoError(t, err)
	_, err = m.JoinTable(ctx, tbl.ID, "owner", "Alice", 2)
	require.NoError(t, err)
	_, err = m.AddBotPlayer(ctx, tbl.ID, fivehundred.BotKindRandom, "owner", 1)
	require.NoError(t, err)
	_, err = m.AddBotPlayer(ctx, tbl.ID, fivehundred.BotKindRandom, "owner", 3)
	require.NoError(t, err)

	_, _, err = m.StartGame(ctx, tbl.ID, "owner")
	require.NoError(t, err)

	// seat 1 is a bot and opens the bidding
	updated, events, err := m.TakeAutomaticTurn(ctx, tbl.ID, "owner")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "bid_made", events[0].EventType())
	assert.NotEqual(t, 1, updated.State.ActiveSeatNumber())
}

func TestGetGameStateSnapshot(t *testing.T) {
	m, snapshots := newTestManager(t)
	ctx := context.Background()
	tbl := createSeatedTable(t, m)

	_, _, err := m.StartGame(ctx, tbl.ID, "owner")
	require.NoError(t, err)
	for _, userID := range []string{"owner", "u2", "u3"} {
		_, _, err := m.TakeRegularTurn(ctx, tbl.ID, userID, "make_bid", map[string]any{"bid": -1})
		require.NoError(t, err)
	}
	// log so far: deck_shuffled(1), three bids(2..4), bidding_finished(5),
	// round_finished(6), deck_shuffled(7); replay-safe mark is 6
	current, err := m.GetTable(ctx, tbl.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), current.State.ReplaySafeEventNumber())

	state, err := m.GetGameStateSnapshot(ctx, tbl.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.EventNumber())

	t.Run("replay populated the cache", func(t *testing.T) {
		lookup, ok, err := snapshots.GetExactOrNearest(ctx, tbl.ID, 3)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, lookup.Exact)
	})

	t.Run("second request hits the exact snapshot", func(t *testing.T) {
		again, err := m.GetGameStateSnapshot(ctx, tbl.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, state, again)
	})

	t.Run("nearest prior plus replay", func(t *testing.T) {
		state, err := m.GetGameStateSnapshot(ctx, tbl.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), state.EventNumber())
	})

	t.Run("beyond the replay-safe mark", func(t *testing.T) {
		_, err := m.GetGameStateSnapshot(ctx, tbl.ID, 7)
		assert.Equal(t, "event_number_too_large", apperr.ReasonOf(err))
	})

	t.Run("non-positive event number", func(t *testing.T) {
		_, err := m.GetGameStateSnapshot(ctx, tbl.ID, 0)
		assert.Equal(t, "event_number_invalid", apperr.ReasonOf(err))
	})

	t.Run("not started table has no history", func(t *testing.T) {
		fresh, err := m.AddTable(ctx, "owner", "five_hundred", nil, nil)
		require.NoError(t, err)
		_, err = m.GetGameStateSnapshot(ctx, fresh.ID, 1)
		assert.Equal(t, "game_not_started", apperr.ReasonOf(err))
	})
}
