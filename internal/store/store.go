// Package store persists tables and their event logs in SQL. Two
// dialects are supported: sqlite for single-node deployments and tests,
// postgres for production. Every game action runs inside one
// transaction that locks the table row, updates the aggregate blob and
// appends the produced events with contiguous sequence numbers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	switch d {
	case dialectSQLite:
		return "sqlite"
	case dialectPostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

const queryTimeout = 5 * time.Second

// Store is the SQL-backed table and event repository.
type Store struct {
	db      *sql.DB
	dialect dialect
	clock   quartz.Clock
	log     *log.Logger
}

// NewSQLite opens (and if needed creates) a sqlite database at path.
// The pool is limited to one connection so the single-writer model of
// sqlite never surfaces as SQLITE_BUSY.
func NewSQLite(ctx context.Context, path string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Infra("store_open", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, apperr.Infra("store_pragma", err)
		}
	}

	s := &Store{
		db:      db,
		dialect: dialectSQLite,
		clock:   quartz.NewReal(),
		log:     logger.WithPrefix("store"),
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("opened database", "dialect", s.dialect, "path", path)
	return s, nil
}

// NewPostgres connects to the postgres database described by dsn.
func NewPostgres(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.Infra("store_open", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperr.Infra("store_ping", err)
	}

	s := &Store{
		db:      db,
		dialect: dialectPostgres,
		clock:   quartz.NewReal(),
		log:     logger.WithPrefix("store"),
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("opened database", "dialect", s.dialect)
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders into the $n form postgres expects.
// Queries in this package are written with ? throughout.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lockClause returns the row-lock suffix for a SELECT inside a
// transaction. sqlite serializes writers on its own, so only postgres
// needs an explicit lock.
func (s *Store) lockClause() string {
	if s.dialect == dialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}
