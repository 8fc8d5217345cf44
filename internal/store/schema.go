package store

import (
	"context"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// The aggregate blob in game_table.data is authoritative. The player
// and config tables are denormalized copies refreshed on every write so
// listings and filters never have to parse blobs.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_table (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		game_name  TEXT NOT NULL,
		status     TEXT NOT NULL,
		data       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_table_status ON game_table (status)`,
	`CREATE INDEX IF NOT EXISTS idx_game_table_game_name ON game_table (game_name)`,
	`CREATE TABLE IF NOT EXISTS game_table_player (
		table_id    TEXT NOT NULL REFERENCES game_table (id) ON DELETE CASCADE,
		player_id   TEXT NOT NULL,
		seat_number INTEGER NOT NULL,
		screen_name TEXT NOT NULL,
		user_id     TEXT NOT NULL DEFAULT '',
		bot_kind    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (table_id, seat_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_table_player_user ON game_table_player (user_id)`,
	`CREATE TABLE IF NOT EXISTS game_table_config (
		table_id     TEXT PRIMARY KEY REFERENCES game_table (id) ON DELETE CASCADE,
		game_config  TEXT NOT NULL,
		table_config TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_event (
		table_id       TEXT NOT NULL REFERENCES game_table (id) ON DELETE CASCADE,
		seq_number     INTEGER NOT NULL,
		event_type     TEXT NOT NULL,
		schema_version INTEGER NOT NULL DEFAULT 1,
		data           TEXT NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		PRIMARY KEY (table_id, seq_number)
	)`,
}

// eventSchemaVersion is written with every event row so the payload
// layout can evolve without rewriting history.
const eventSchemaVersion = 1

func (s *Store) ensureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperr.Infra("store_schema", err)
		}
	}
	return nil
}
