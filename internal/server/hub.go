package server

import (
	"context"

	"github.com/charmbracelet/log"
)

// broadcast carries one table-wide update. The frame is built per
// receiver so each connection gets its own seat-private projection.
type broadcast struct {
	tableID string
	build   func(userID string) *Message
}

// Hub tracks which connections observe which table and fans table
// updates out to them. All membership changes and broadcasts flow
// through one goroutine, so no locking is needed on the group map.
type Hub struct {
	groups     map[string]map[*Connection]bool
	register   chan *Connection
	unregister chan *Connection
	broadcasts chan broadcast
	log        *log.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		groups:     make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcasts: make(chan broadcast, 64),
		log:        logger.WithPrefix("hub"),
	}
}

// Run processes membership changes and broadcasts until the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for _, group := range h.groups {
				for conn := range group {
					_ = conn.Close()
				}
			}
			return nil

		case conn := <-h.register:
			group, ok := h.groups[conn.tableID]
			if !ok {
				group = make(map[*Connection]bool)
				h.groups[conn.tableID] = group
			}
			group[conn] = true
			h.log.Debug("observer joined", "table_id", conn.tableID, "user_id", conn.userID, "observers", len(group))

		case conn := <-h.unregister:
			if group, ok := h.groups[conn.tableID]; ok {
				if _, member := group[conn]; member {
					delete(group, conn)
					if len(group) == 0 {
						delete(h.groups, conn.tableID)
					}
				}
			}

		case b := <-h.broadcasts:
			for conn := range h.groups[b.tableID] {
				if err := conn.Send(b.build(conn.userID)); err != nil {
					h.log.Debug("dropping slow observer", "table_id", b.tableID, "user_id", conn.userID)
				}
			}
		}
	}
}

// Register adds a connection to its table's group.
func (h *Hub) Register(conn *Connection) { h.register <- conn }

// Unregister removes a connection; safe to call more than once.
func (h *Hub) Unregister(conn *Connection) { h.unregister <- conn }

// Broadcast fans one update out to every observer of the table.
func (h *Hub) Broadcast(tableID string, build func(userID string) *Message) {
	h.broadcasts <- broadcast{tableID: tableID, build: build}
}
