package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

// TableFilter narrows and pages a table listing.
type TableFilter struct {
	Statuses []table.Status
	GameName string
	Limit    int
	Offset   int
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// CreateTable inserts a new table aggregate.
func (s *Store) CreateTable(ctx context.Context, tbl *table.Table) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	data, err := tbl.Marshal()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Infra("store_begin", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO game_table (id, owner_id, game_name, status, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		tbl.ID, tbl.OwnerID, string(tbl.Config.GameName), string(tbl.Status),
		string(data), tbl.CreatedAt.UTC(), tbl.UpdatedAt.UTC())
	if err != nil {
		return apperr.Infra("store_insert", err)
	}
	if err := s.refreshDenormalized(ctx, tx, tbl); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Infra("store_commit", err)
	}
	s.log.Debug("table created", "table_id", tbl.ID, "game_name", tbl.Config.GameName)
	return nil
}

// FindTable loads one table by id.
func (s *Store) FindTable(ctx context.Context, tableID string) (*table.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var data string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT data FROM game_table WHERE id = ?`), tableID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("table_not_found").WithContext("table_id", tableID)
	}
	if err != nil {
		return nil, apperr.Infra("store_select", err)
	}
	return table.Unmarshal([]byte(data))
}

// FindTables lists tables matching the filter, newest first.
func (s *Store) FindTables(ctx context.Context, filter TableFilter) ([]*table.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(status))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.GameName != "" {
		where = append(where, "game_name = ?")
		args = append(args, filter.GameName)
	}

	query := `SELECT data FROM game_table`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, apperr.Infra("store_select", err)
	}
	defer rows.Close()

	var tables []*table.Table
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperr.Infra("store_scan", err)
		}
		tbl, err := table.Unmarshal([]byte(data))
		if err != nil {
			return nil, err
		}
		tables = append(tables, tbl)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Infra("store_rows", err)
	}
	return tables, nil
}

// DeleteTable removes a table and, via cascade, its players, config and
// event log.
func (s *Store) DeleteTable(ctx context.Context, tableID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM game_table WHERE id = ?`), tableID)
	if err != nil {
		return apperr.Infra("store_delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Infra("store_delete", err)
	}
	if affected == 0 {
		return apperr.NotFound("table_not_found").WithContext("table_id", tableID)
	}
	s.log.Debug("table deleted", "table_id", tableID)
	return nil
}

// Modify loads the table under a row lock, applies fn and saves the
// result. An error from fn rolls everything back.
func (s *Store) Modify(ctx context.Context, tableID string, fn func(*table.Table) error) (*table.Table, error) {
	tbl, _, err := s.modify(ctx, tableID, func(tbl *table.Table) ([]game.Event, error) {
		return nil, fn(tbl)
	})
	return tbl, err
}

// ModifyDuringGameAction is Modify for mutations that produce game
// events: the returned events are appended to the table's log in the
// same transaction, with sequence numbers contiguous to what is already
// stored.
func (s *Store) ModifyDuringGameAction(ctx context.Context, tableID string, fn func(*table.Table) ([]game.Event, error)) (*table.Table, []game.Event, error) {
	return s.modify(ctx, tableID, fn)
}

func (s *Store) modify(ctx context.Context, tableID string, fn func(*table.Table) ([]game.Event, error)) (*table.Table, []game.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, apperr.Infra("store_begin", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT data FROM game_table WHERE id = ?`)+s.lockClause(), tableID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.NotFound("table_not_found").WithContext("table_id", tableID)
	}
	if err != nil {
		return nil, nil, apperr.Infra("store_select", err)
	}
	tbl, err := table.Unmarshal([]byte(data))
	if err != nil {
		return nil, nil, err
	}

	events, err := fn(tbl)
	if err != nil {
		return nil, nil, err
	}

	tbl.UpdatedAt = s.clock.Now().UTC()
	updated, err := tbl.Marshal()
	if err != nil {
		return nil, nil, err
	}
	_, err = tx.ExecContext(ctx, s.rebind(
		`UPDATE game_table SET owner_id = ?, status = ?, data = ?, updated_at = ? WHERE id = ?`),
		tbl.OwnerID, string(tbl.Status), string(updated), tbl.UpdatedAt, tbl.ID)
	if err != nil {
		return nil, nil, apperr.Infra("store_update", err)
	}
	if err := s.refreshDenormalized(ctx, tx, tbl); err != nil {
		return nil, nil, err
	}
	if len(events) > 0 {
		if err := s.appendEvents(ctx, tx, tbl, events); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, apperr.Infra("store_commit", err)
	}
	return tbl, events, nil
}

// refreshDenormalized rewrites the player and config rows wholesale.
// Cheap at these row counts and immune to drift.
func (s *Store) refreshDenormalized(ctx context.Context, tx *sql.Tx, tbl *table.Table) error {
	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM game_table_player WHERE table_id = ?`), tbl.ID); err != nil {
		return apperr.Infra("store_refresh", err)
	}
	for _, player := range tbl.Players {
		_, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO game_table_player (table_id, player_id, seat_number, screen_name, user_id, bot_kind)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			tbl.ID, player.ID, player.SeatNumber, player.ScreenName, player.UserID, player.BotKind)
		if err != nil {
			return apperr.Infra("store_refresh", err)
		}
	}

	gameConfig, err := json.Marshal(tbl.Config.GameConfig.ConfigMap())
	if err != nil {
		return apperr.Infra("store_refresh", err)
	}
	tableConfig, err := json.Marshal(tbl.Config.Settings)
	if err != nil {
		return apperr.Infra("store_refresh", err)
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM game_table_config WHERE table_id = ?`), tbl.ID); err != nil {
		return apperr.Infra("store_refresh", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO game_table_config (table_id, game_config, table_config) VALUES (?, ?, ?)`),
		tbl.ID, string(gameConfig), string(tableConfig)); err != nil {
		return apperr.Infra("store_refresh", err)
	}
	return nil
}

// appendEvents inserts the batch right after the highest stored
// sequence number. A batch that does not continue the log contiguously
// means the aggregate and the log diverged, which must never commit.
func (s *Store) appendEvents(ctx context.Context, tx *sql.Tx, tbl *table.Table, events []game.Event) error {
	def, err := game.Lookup(tbl.Config.GameName)
	if err != nil {
		return err
	}

	var maxSeq int64
	err = tx.QueryRowContext(ctx, s.rebind(
		`SELECT COALESCE(MAX(seq_number), 0) FROM game_event WHERE table_id = ?`), tbl.ID).Scan(&maxSeq)
	if err != nil {
		return apperr.Infra("store_select", err)
	}

	next := maxSeq + 1
	now := s.clock.Now().UTC()
	for _, ev := range events {
		if ev.SeqNumber() != next {
			return apperr.Internal("event_sequence_gap",
				fmt.Sprintf("expected event %d, got %d", next, ev.SeqNumber())).
				WithContext("table_id", tbl.ID)
		}
		data, err := def.MarshalEvent(ev)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO game_event (table_id, seq_number, event_type, schema_version, data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			tbl.ID, ev.SeqNumber(), ev.EventType(), eventSchemaVersion, string(data), now)
		if err != nil {
			return apperr.Infra("store_insert", err)
		}
		next++
	}
	return nil
}
