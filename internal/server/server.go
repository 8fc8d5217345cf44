// Package server exposes the table service over REST and a per-table
// WebSocket channel. REST handles table control; the WebSocket channel
// carries the same actions plus realtime fan-out of committed game and
// table updates, each observer receiving its own seat-private
// projection.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/gatismeikulis/card-game-app/internal/auth"
	"github.com/gatismeikulis/card-game-app/internal/manager"
)

// Server owns the listener, the observer hub and the upgrader.
type Server struct {
	addr     string
	manager  *manager.Manager
	verifier auth.Verifier
	hub      *Hub
	upgrader websocket.Upgrader
	log      *log.Logger
}

// New builds a server on the given manager and verifier.
func New(addr string, mgr *manager.Manager, verifier auth.Verifier, logger *log.Logger) *Server {
	return &Server{
		addr:     addr,
		manager:  mgr,
		verifier: verifier,
		hub:      NewHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin checks belong on the proxy in front of this service
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.WithPrefix("server"),
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tables", s.withAuth(s.handleListTables))
	mux.HandleFunc("POST /tables", s.withAuth(s.handleCreateTable))
	mux.HandleFunc("GET /tables/{id}", s.withAuth(s.handleGetTable))
	mux.HandleFunc("DELETE /tables/{id}", s.withAuth(s.handleDeleteTable))
	mux.HandleFunc("GET /tables/{id}/history", s.withAuth(s.handleHistory))
	mux.HandleFunc("POST /tables/{id}/{action}", s.withAuth(s.handleTableAction))
	mux.HandleFunc("GET /ws/tables/{id}/{$}", s.handleWS)
	return mux
}

// Handler returns the routed handler; exposed for tests.
func (s *Server) Handler() http.Handler { return s.routes() }

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.hub.Run(ctx) })

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.log.Info("listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}
