package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/game/fivehundred"
	"github.com/gatismeikulis/card-game-app/internal/randutil"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(context.Background(), ":memory:", log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newSeatedTable(t *testing.T, owner string, now time.Time) *table.Table {
	t.Helper()
	cfg, err := table.ParseConfig("five_hundred", nil, nil)
	require.NoError(t, err)
	tbl := table.New(owner, cfg, now)
	rng := randutil.New(1)
	require.NoError(t, tbl.AddHumanPlayer(owner, "Alice", 1, rng))
	require.NoError(t, tbl.AddHumanPlayer("u2", "Bob", 2, rng))
	require.NoError(t, tbl.AddHumanPlayer("u3", "Cara", 3, rng))
	return tbl
}

func TestCreateAndFindTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tbl := newSeatedTable(t, "owner", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.CreateTable(ctx, tbl))

	found, err := s.FindTable(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, tbl.ID, found.ID)
	assert.Equal(t, tbl.OwnerID, found.OwnerID)
	assert.Equal(t, tbl.Players, found.Players)
	assert.Equal(t, table.StatusNotStarted, found.Status)

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.FindTable(ctx, "no-such-table")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, "table_not_found", apperr.ReasonOf(err))
	})
}

func TestFindTablesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	open := newSeatedTable(t, "owner-a", base)
	require.NoError(t, s.CreateTable(ctx, open))

	cancelled := newSeatedTable(t, "owner-b", base.Add(time.Minute))
	cancelled.Status = table.StatusCancelled
	require.NoError(t, s.CreateTable(ctx, cancelled))

	newest := newSeatedTable(t, "owner-c", base.Add(2*time.Minute))
	require.NoError(t, s.CreateTable(ctx, newest))

	t.Run("no filter lists newest first", func(t *testing.T) {
		tables, err := s.FindTables(ctx, TableFilter{})
		require.NoError(t, err)
		require.Len(t, tables, 3)
		assert.Equal(t, newest.ID, tables[0].ID)
		assert.Equal(t, open.ID, tables[2].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		tables, err := s.FindTables(ctx, TableFilter{Statuses: []table.Status{table.StatusNotStarted}})
		require.NoError(t, err)
		require.Len(t, tables, 2)
		for _, tbl := range tables {
			assert.Equal(t, table.StatusNotStarted, tbl.Status)
		}
	})

	t.Run("game name filter", func(t *testing.T) {
		tables, err := s.FindTables(ctx, TableFilter{GameName: "five_hundred"})
		require.NoError(t, err)
		assert.Len(t, tables, 3)

		tables, err = s.FindTables(ctx, TableFilter{GameName: "whist"})
		require.NoError(t, err)
		assert.Empty(t, tables)
	})

	t.Run("pagination", func(t *testing.T) {
		tables, err := s.FindTables(ctx, TableFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, tables, 1)
		assert.Equal(t, cancelled.ID, tables[0].ID)
	})
}

func TestModify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tbl := newSeatedTable(t, "owner", time.Now().UTC())
	require.NoError(t, s.CreateTable(ctx, tbl))

	updated, err := s.Modify(ctx, tbl.ID, func(tbl *table.Table) error {
		return tbl.RemoveHumanPlayer("u3")
	})
	require.NoError(t, err)
	assert.Len(t, updated.Players, 2)

	found, err := s.FindTable(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Len(t, found.Players, 2)

	t.Run("error rolls back", func(t *testing.T) {
		_, err := s.Modify(ctx, tbl.ID, func(tbl *table.Table) error {
			tbl.Players = nil
			return apperr.Rules("nope", "refused")
		})
		assert.Equal(t, "nope", apperr.ReasonOf(err))

		found, err := s.FindTable(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Len(t, found.Players, 2)
	})
}

func TestGameActionAppendsEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tbl := newSeatedTable(t, "owner", time.Now().UTC())
	require.NoError(t, s.CreateTable(ctx, tbl))
	rng := randutil.New(42)

	started, events, err := s.ModifyDuringGameAction(ctx, tbl.ID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.StartGame("owner", rng)
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, table.StatusInProgress, started.Status)

	stored, err := s.Events(ctx, tbl.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, stored, len(events))
	assert.Equal(t, "deck_shuffled", stored[0].EventType)
	for i, record := range stored {
		assert.Equal(t, int64(i+1), record.SeqNumber)
		assert.Equal(t, eventSchemaVersion, record.SchemaVersion)
	}

	latest, err := s.LatestSeq(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(events)), latest)

	t.Run("next action continues the sequence", func(t *testing.T) {
		_, more, err := s.ModifyDuringGameAction(ctx, tbl.ID, func(tbl *table.Table) ([]game.Event, error) {
			return tbl.TakeRegularTurn("owner", fivehundred.MakeBidCommand{Bid: -1}, rng)
		})
		require.NoError(t, err)
		require.NotEmpty(t, more)
		assert.Equal(t, latest+1, more[0].SeqNumber())

		total, err := s.LatestSeq(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Equal(t, latest+int64(len(more)), total)
	})

	t.Run("gapped batch refused", func(t *testing.T) {
		before, err := s.LatestSeq(ctx, tbl.ID)
		require.NoError(t, err)

		_, _, err = s.ModifyDuringGameAction(ctx, tbl.ID, func(tbl *table.Table) ([]game.Event, error) {
			ev := fivehundred.BidMadeEvent{Seat: 2, Bid: -1}
			ev.Seq = before + 5
			return []game.Event{ev}, nil
		})
		assert.Equal(t, "event_sequence_gap", apperr.ReasonOf(err))

		after, err := s.LatestSeq(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestEventsRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tbl := newSeatedTable(t, "owner", time.Now().UTC())
	require.NoError(t, s.CreateTable(ctx, tbl))
	rng := randutil.New(7)

	_, events, err := s.ModifyDuringGameAction(ctx, tbl.ID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.StartGame("owner", rng)
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(events), 1)

	t.Run("window", func(t *testing.T) {
		records, err := s.Events(ctx, tbl.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(1), records[0].SeqNumber)
	})

	t.Run("beyond the log", func(t *testing.T) {
		records, err := s.Events(ctx, tbl.ID, int64(len(events))+1, 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestDeleteTableCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tbl := newSeatedTable(t, "owner", time.Now().UTC())
	require.NoError(t, s.CreateTable(ctx, tbl))
	rng := randutil.New(9)

	_, _, err := s.ModifyDuringGameAction(ctx, tbl.ID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.StartGame("owner", rng)
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTable(ctx, tbl.ID))

	_, err = s.FindTable(ctx, tbl.ID)
	assert.Equal(t, "table_not_found", apperr.ReasonOf(err))

	var eventCount, playerCount int
	require.NoError(t, s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM game_event WHERE table_id = ?`), tbl.ID).Scan(&eventCount))
	require.NoError(t, s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM game_table_player WHERE table_id = ?`), tbl.ID).Scan(&playerCount))
	assert.Zero(t, eventCount)
	assert.Zero(t, playerCount)

	t.Run("deleting again is not found", func(t *testing.T) {
		err := s.DeleteTable(ctx, tbl.ID)
		assert.Equal(t, "table_not_found", apperr.ReasonOf(err))
	})
}

func TestDenormalizedRowsTrackTheAggregate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tbl := newSeatedTable(t, "owner", time.Now().UTC())
	require.NoError(t, s.CreateTable(ctx, tbl))

	var playerCount int
	require.NoError(t, s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM game_table_player WHERE table_id = ?`), tbl.ID).Scan(&playerCount))
	assert.Equal(t, 3, playerCount)

	_, err := s.Modify(ctx, tbl.ID, func(tbl *table.Table) error {
		return tbl.RemoveHumanPlayer("u2")
	})
	require.NoError(t, err)

	require.NoError(t, s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM game_table_player WHERE table_id = ?`), tbl.ID).Scan(&playerCount))
	assert.Equal(t, 2, playerCount)

	var gameConfig string
	require.NoError(t, s.db.QueryRowContext(ctx,
		s.rebind(`SELECT game_config FROM game_table_config WHERE table_id = ?`), tbl.ID).Scan(&gameConfig))
	assert.Contains(t, gameConfig, "max_rounds")
}
