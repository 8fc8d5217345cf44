package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/gatismeikulis/card-game-app/internal/auth"
	"github.com/gatismeikulis/card-game-app/internal/cache"
	"github.com/gatismeikulis/card-game-app/internal/server"
	"github.com/gatismeikulis/card-game-app/internal/store"
)

func setupLogger(level string, debug bool) *log.Logger {
	logger := log.New(os.Stderr)
	if debug {
		logger.SetLevel(log.DebugLevel)
		return logger
	}
	if parsed, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}

// backends bundles everything the config selects an implementation for.
type backends struct {
	store     *store.Store
	snapshots cache.SnapshotCache
	locks     cache.TaskLock
	verifier  auth.Verifier
	closers   []func() error
}

func (b *backends) Close() {
	for _, closer := range b.closers {
		_ = closer()
	}
}

func openBackends(ctx context.Context, cfg *server.Config, logger *log.Logger) (*backends, error) {
	b := &backends{}

	var (
		s   *store.Store
		err error
	)
	switch cfg.Database.Driver {
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Database.DSN, logger)
	default:
		s, err = store.NewSQLite(ctx, cfg.Database.Path, logger)
	}
	if err != nil {
		return nil, err
	}
	b.store = s
	b.closers = append(b.closers, s.Close)

	switch cfg.Cache.Backend {
	case "redis":
		r, err := cache.NewRedis(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.snapshots = r
		b.locks = r
		b.closers = append(b.closers, r.Close)
	default:
		m := cache.NewMemory(cfg.Cache.Capacity, quartz.NewReal())
		b.snapshots = m
		b.locks = m
	}

	switch cfg.Auth.Mode {
	case "http":
		b.verifier = auth.NewHTTPVerifier(cfg.Auth.URL)
	default:
		tokens := make(map[string]auth.Identity, len(cfg.Auth.Tokens))
		for _, token := range cfg.Auth.Tokens {
			screenName := token.ScreenName
			if screenName == "" {
				screenName = token.UserID
			}
			tokens[token.Token] = auth.Identity{UserID: token.UserID, ScreenName: screenName}
		}
		b.verifier = auth.NewStaticVerifier(tokens)
	}

	return b, nil
}
