package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gatismeikulis/card-game-app/internal/manager"
	"github.com/gatismeikulis/card-game-app/internal/server"
	"github.com/gatismeikulis/card-game-app/internal/snapshotter"
)

// ServeCmd runs the HTTP/WebSocket service.
type ServeCmd struct {
	Config string `kong:"default='cardtable.hcl',help='Path to the HCL config file'"`
	Addr   string `kong:"help='Override the configured listen address'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Server.LogLevel, c.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	mgr := manager.New(b.store, b.store, b.snapshots, logger)
	addr := cfg.ListenAddr()
	if c.Addr != "" {
		addr = c.Addr
	}
	srv := server.New(addr, mgr, b.verifier, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if cfg.Cache.SweepInterval != "" {
		interval, err := time.ParseDuration(cfg.Cache.SweepInterval)
		if err != nil {
			return err
		}
		snap := snapshotter.New(b.store, b.store, b.snapshots, b.locks, logger)
		g.Go(func() error { return snap.Run(ctx, interval) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}
