// Package snapshotter backfills the snapshot cache from the event log
// in the background. Workers coordinate through a TTL'd task lock so a
// range is only ever replayed by one process at a time.
package snapshotter

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/cache"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/store"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

// TableRepository is the read side of the table store.
type TableRepository interface {
	FindTable(ctx context.Context, tableID string) (*table.Table, error)
	FindTables(ctx context.Context, filter store.TableFilter) ([]*table.Table, error)
}

// EventRepository reads the append-only event log.
type EventRepository interface {
	Events(ctx context.Context, tableID string, from, to int64) ([]store.EventRecord, error)
	LatestSeq(ctx context.Context, tableID string) (int64, error)
}

// Snapshotter replays event ranges and stores the resulting states.
type Snapshotter struct {
	tables    TableRepository
	events    EventRepository
	snapshots cache.SnapshotCache
	locks     cache.TaskLock
	clock     quartz.Clock
	log       *log.Logger
}

// New builds a snapshotter.
func New(tables TableRepository, events EventRepository, snapshots cache.SnapshotCache, locks cache.TaskLock, logger *log.Logger) *Snapshotter {
	return &Snapshotter{
		tables:    tables,
		events:    events,
		snapshots: snapshots,
		locks:     locks,
		clock:     quartz.NewReal(),
		log:       logger.WithPrefix("snapshotter"),
	}
}

func lockKey(tableID string, start, end int64) string {
	return fmt.Sprintf("create_game_state_snapshots_lock:%s:%d:%d", tableID, start, end)
}

// Backfill replays the table's events with start < seq_number <= end
// and stores one snapshot per event. start 0 replays from the
// beginning. The range is clamped to the table's replay-safe mark so
// the cache never holds states that would leak private cards.
//
// Returns false without error when another worker holds the lock for
// this range or when the table has nothing to snapshot yet.
func (s *Snapshotter) Backfill(ctx context.Context, tableID string, start, end int64) (bool, error) {
	key := lockKey(tableID, start, end)
	acquired, err := s.locks.SetLock(ctx, key)
	if err != nil {
		return false, err
	}
	if !acquired {
		s.log.Debug("range already being snapshotted", "table_id", tableID, "start", start, "end", end)
		return false, nil
	}
	defer func() {
		if err := s.locks.Release(ctx, key); err != nil {
			s.log.Warn("lock release failed", "key", key, "err", err)
		}
	}()

	tbl, err := s.tables.FindTable(ctx, tableID)
	if err != nil {
		return false, err
	}
	if tbl.Status == table.StatusNotStarted || tbl.State == nil {
		return false, nil
	}
	if safe := tbl.State.ReplaySafeEventNumber(); end > safe {
		end = safe
	}
	if end <= start {
		return false, nil
	}

	def, err := game.Lookup(tbl.Config.GameName)
	if err != nil {
		return false, err
	}

	state, from, err := s.initialState(ctx, def, tbl, start)
	if err != nil {
		return false, err
	}

	records, err := s.events.Events(ctx, tableID, from, end)
	if err != nil {
		return false, err
	}
	engine := def.NewEngine()
	batch := make([]cache.Snapshot, 0, len(records))
	for _, record := range records {
		ev, err := def.ParseEvent(record.Data)
		if err != nil {
			return false, err
		}
		state, err = engine.Apply(state, ev)
		if err != nil {
			return false, err
		}
		if state.EventNumber() != record.SeqNumber {
			return false, apperr.Internal("event_number_mismatch",
				fmt.Sprintf("replayed state is at event %d after applying event %d",
					state.EventNumber(), record.SeqNumber)).
				WithContext("table_id", tableID)
		}
		blob, err := def.MarshalState(state)
		if err != nil {
			return false, err
		}
		batch = append(batch, cache.Snapshot{
			TableID:     tableID,
			EventNumber: record.SeqNumber,
			State:       blob,
		})
	}
	if err := s.snapshots.Store(ctx, batch); err != nil {
		return false, err
	}
	s.log.Info("range snapshotted", "table_id", tableID, "from", from, "to", end, "snapshots", len(batch))
	return true, nil
}

// initialState resolves where the replay begins: the exact cached
// snapshot at start when there is one, otherwise a fresh initial state
// replayed from event 1.
func (s *Snapshotter) initialState(ctx context.Context, def game.Definition, tbl *table.Table, start int64) (game.State, int64, error) {
	if start > 0 {
		lookup, ok, err := s.snapshots.GetExactOrNearest(ctx, tbl.ID, start)
		if err != nil {
			return nil, 0, err
		}
		if ok && lookup.Exact {
			state, err := def.DecodeState(lookup.Snapshot.State)
			if err != nil {
				return nil, 0, err
			}
			return state, start + 1, nil
		}
	}
	numbers := make([]int, len(tbl.Players))
	for i, player := range tbl.Players {
		numbers[i] = player.SeatNumber
	}
	state, err := def.NewEngine().Init(tbl.Config.GameConfig, numbers)
	if err != nil {
		return nil, 0, err
	}
	return state, 1, nil
}

// Sweep backfills every table that has an event log, each over its full
// range. Used by the one-shot CLI command and the periodic runner.
func (s *Snapshotter) Sweep(ctx context.Context) error {
	tables, err := s.tables.FindTables(ctx, store.TableFilter{
		Statuses: []table.Status{
			table.StatusInProgress,
			table.StatusFinished,
			table.StatusAborted,
			table.StatusCancelled,
		},
	})
	if err != nil {
		return err
	}
	for _, tbl := range tables {
		latest, err := s.events.LatestSeq(ctx, tbl.ID)
		if err != nil {
			return err
		}
		if latest == 0 {
			continue
		}
		if _, err := s.Backfill(ctx, tbl.ID, 0, latest); err != nil {
			s.log.Error("backfill failed", "table_id", tbl.ID, "err", err)
		}
	}
	return nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Snapshotter) Run(ctx context.Context, interval time.Duration) error {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", "err", err)
			}
		}
	}
}
