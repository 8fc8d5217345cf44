package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// EventRecord is one stored event row. Data holds the event exactly as
// the game's codec wrote it, type tag included.
type EventRecord struct {
	TableID       string          `json:"table_id"`
	SeqNumber     int64           `json:"seq_number"`
	EventType     string          `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Events returns the table's events with from <= seq_number <= to in
// ascending order. to <= 0 means no upper bound.
func (s *Store) Events(ctx context.Context, tableID string, from, to int64) ([]EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT seq_number, event_type, schema_version, data, created_at
		FROM game_event WHERE table_id = ? AND seq_number >= ?`
	args := []any{tableID, from}
	if to > 0 {
		query += ` AND seq_number <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY seq_number ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, apperr.Infra("store_select", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		record := EventRecord{TableID: tableID}
		var data string
		if err := rows.Scan(&record.SeqNumber, &record.EventType, &record.SchemaVersion, &data, &record.CreatedAt); err != nil {
			return nil, apperr.Infra("store_scan", err)
		}
		record.Data = json.RawMessage(data)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Infra("store_rows", err)
	}
	return records, nil
}

// LatestSeq reports the highest stored sequence number for the table,
// 0 when the log is empty.
func (s *Store) LatestSeq(ctx context.Context, tableID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var maxSeq int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COALESCE(MAX(seq_number), 0) FROM game_event WHERE table_id = ?`), tableID).Scan(&maxSeq)
	if err != nil {
		return 0, apperr.Infra("store_select", err)
	}
	return maxSeq, nil
}
