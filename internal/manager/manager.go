// Package manager is the application layer: it orchestrates table
// operations over the repository primitives, reconstructs historical
// game states from the event log, and feeds the snapshot cache. All
// mutations run inside the repository's row-locked transaction; the
// manager itself holds no per-table state.
package manager

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/cache"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/randutil"
	"github.com/gatismeikulis/card-game-app/internal/store"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

// TableRepository is the authoritative table store.
type TableRepository interface {
	CreateTable(ctx context.Context, tbl *table.Table) error
	FindTable(ctx context.Context, tableID string) (*table.Table, error)
	FindTables(ctx context.Context, filter store.TableFilter) ([]*table.Table, error)
	DeleteTable(ctx context.Context, tableID string) error
	Modify(ctx context.Context, tableID string, fn func(*table.Table) error) (*table.Table, error)
	ModifyDuringGameAction(ctx context.Context, tableID string, fn func(*table.Table) ([]game.Event, error)) (*table.Table, []game.Event, error)
}

// EventRepository reads the append-only event log.
type EventRepository interface {
	Events(ctx context.Context, tableID string, from, to int64) ([]store.EventRecord, error)
}

// Manager exposes every table operation the transport layers need.
type Manager struct {
	tables    TableRepository
	events    EventRepository
	snapshots cache.SnapshotCache
	clock     quartz.Clock
	log       *log.Logger
	newRNG    func() *rand.Rand
}

// New builds a manager over the given repositories and cache.
func New(tables TableRepository, events EventRepository, snapshots cache.SnapshotCache, logger *log.Logger) *Manager {
	return &Manager{
		tables:    tables,
		events:    events,
		snapshots: snapshots,
		clock:     quartz.NewReal(),
		log:       logger.WithPrefix("manager"),
		newRNG: func() *rand.Rand {
			return randutil.New(time.Now().UnixNano())
		},
	}
}

// AddTable creates a table from the client's config envelope.
func (m *Manager) AddTable(ctx context.Context, ownerID, gameName string, gameConfig, tableConfig map[string]any) (*table.Table, error) {
	cfg, err := table.ParseConfig(gameName, gameConfig, tableConfig)
	if err != nil {
		return nil, err
	}
	tbl := table.New(ownerID, cfg, m.clock.Now().UTC())
	if err := m.tables.CreateTable(ctx, tbl); err != nil {
		return nil, err
	}
	m.log.Info("table created", "table_id", tbl.ID, "owner_id", ownerID, "game_name", gameName)
	return tbl, nil
}

// RemoveTable deletes a table. Owner only; a game in progress must be
// cancelled or aborted first.
func (m *Manager) RemoveTable(ctx context.Context, tableID, initiatedBy string) error {
	tbl, err := m.tables.FindTable(ctx, tableID)
	if err != nil {
		return err
	}
	if tbl.OwnerID != initiatedBy {
		return apperr.Rules("not_owner", "only the table owner may remove the table").
			WithContext("table_id", tableID)
	}
	if tbl.Status == table.StatusInProgress {
		return apperr.Rules("wrong_table_status", "cannot remove a table with a game in progress").
			WithContext("table_id", tableID)
	}
	return m.tables.DeleteTable(ctx, tableID)
}

// GetTable loads one table.
func (m *Manager) GetTable(ctx context.Context, tableID string) (*table.Table, error) {
	return m.tables.FindTable(ctx, tableID)
}

// FindTables lists tables.
func (m *Manager) FindTables(ctx context.Context, filter store.TableFilter) ([]*table.Table, error) {
	return m.tables.FindTables(ctx, filter)
}

// JoinTable seats a user.
func (m *Manager) JoinTable(ctx context.Context, tableID, userID, screenName string, preferredSeat int) (*table.Table, error) {
	rng := m.newRNG()
	tbl, err := m.tables.Modify(ctx, tableID, func(tbl *table.Table) error {
		return tbl.AddHumanPlayer(userID, screenName, preferredSeat, rng)
	})
	return tbl, opContext(err, "join_table", tableID, userID)
}

// LeaveTable unseats a user.
func (m *Manager) LeaveTable(ctx context.Context, tableID, userID string) (*table.Table, error) {
	tbl, err := m.tables.Modify(ctx, tableID, func(tbl *table.Table) error {
		return tbl.RemoveHumanPlayer(userID)
	})
	return tbl, opContext(err, "leave_table", tableID, userID)
}

// AddBotPlayer seats a bot. Owner only.
func (m *Manager) AddBotPlayer(ctx context.Context, tableID, botKind, initiatedBy string, preferredSeat int) (*table.Table, error) {
	rng := m.newRNG()
	tbl, err := m.tables.Modify(ctx, tableID, func(tbl *table.Table) error {
		return tbl.AddBotPlayer(botKind, initiatedBy, preferredSeat, rng)
	})
	return tbl, opContext(err, "add_bot", tableID, initiatedBy)
}

// RemoveBotPlayer unseats a bot. Owner only.
func (m *Manager) RemoveBotPlayer(ctx context.Context, tableID string, seatNumber int, initiatedBy string) (*table.Table, error) {
	tbl, err := m.tables.Modify(ctx, tableID, func(tbl *table.Table) error {
		return tbl.RemoveBotPlayer(seatNumber, initiatedBy)
	})
	return tbl, opContext(err, "remove_bot", tableID, initiatedBy)
}

// StartGame initializes the game and commits its opening cascade.
func (m *Manager) StartGame(ctx context.Context, tableID, initiatedBy string) (*table.Table, []game.Event, error) {
	rng := m.newRNG()
	tbl, events, err := m.tables.ModifyDuringGameAction(ctx, tableID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.StartGame(initiatedBy, rng)
	})
	return tbl, events, opContext(err, "start_game", tableID, initiatedBy)
}

// TakeRegularTurn parses the command payload and runs it for the user
// on the active seat.
func (m *Manager) TakeRegularTurn(ctx context.Context, tableID, userID, commandType string, payload map[string]any) (*table.Table, []game.Event, error) {
	rng := m.newRNG()
	tbl, events, err := m.tables.ModifyDuringGameAction(ctx, tableID, func(tbl *table.Table) ([]game.Event, error) {
		def, err := game.Lookup(tbl.Config.GameName)
		if err != nil {
			return nil, err
		}
		cmd, err := def.ParseCommand(commandType, payload)
		if err != nil {
			return nil, err
		}
		return tbl.TakeRegularTurn(userID, cmd, rng)
	})
	return tbl, events, opContext(err, "take_turn", tableID, userID)
}

// TakeAutomaticTurn makes the bot on the active seat move.
func (m *Manager) TakeAutomaticTurn(ctx context.Context, tableID, initiatedBy string) (*table.Table, []game.Event, error) {
	rng := m.newRNG()
	tbl, events, err := m.tables.ModifyDuringGameAction(ctx, tableID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.TakeAutomaticTurn(initiatedBy, rng)
	})
	return tbl, events, opContext(err, "take_automatic_turn", tableID, initiatedBy)
}

// CancelGame ends the game without a result. Owner only.
func (m *Manager) CancelGame(ctx context.Context, tableID, initiatedBy string) (*table.Table, []game.Event, error) {
	rng := m.newRNG()
	tbl, events, err := m.tables.ModifyDuringGameAction(ctx, tableID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.CancelGame(initiatedBy, rng)
	})
	return tbl, events, opContext(err, "cancel_game", tableID, initiatedBy)
}

// AbortGame ends the game blaming one seat. Owner only.
func (m *Manager) AbortGame(ctx context.Context, tableID, initiatedBy string, blamedSeat int) (*table.Table, []game.Event, error) {
	rng := m.newRNG()
	tbl, events, err := m.tables.ModifyDuringGameAction(ctx, tableID, func(tbl *table.Table) ([]game.Event, error) {
		return tbl.AbortGame(initiatedBy, blamedSeat, rng)
	})
	return tbl, events, opContext(err, "abort_game", tableID, initiatedBy)
}

func opContext(err error, operation, tableID, userID string) error {
	if err == nil {
		return nil
	}
	return apperr.WithContext(err, "operation", operation, "table_id", tableID, "user_id", userID)
}

func seatNumbers(tbl *table.Table) []int {
	numbers := make([]int, len(tbl.Players))
	for i, player := range tbl.Players {
		numbers[i] = player.SeatNumber
	}
	return numbers
}

func invalidEventNumber(eventNumber int64) error {
	return apperr.Parse("event_number_invalid",
		fmt.Sprintf("event number must be positive, got %d", eventNumber))
}
