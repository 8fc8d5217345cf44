package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Connection is one authenticated WebSocket observer of one table.
type Connection struct {
	conn       *websocket.Conn
	send       chan *Message
	tableID    string
	userID     string
	screenName string
	server     *Server
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	log        *log.Logger
}

func newConnection(conn *websocket.Conn, tableID, userID, screenName string, srv *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:       conn,
		send:       make(chan *Message, 256),
		tableID:    tableID,
		userID:     userID,
		screenName: screenName,
		server:     srv,
		ctx:        ctx,
		cancel:     cancel,
		log:        logger.WithPrefix("conn"),
	}
}

func (c *Connection) start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down; idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send queues a frame for the client. A full buffer closes the
// connection rather than blocking the hub.
func (c *Connection) Send(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("send on closed connection", "err", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.log.Warn("send buffer full, closing connection", "table_id", c.tableID, "user_id", c.userID)
		_ = c.Close()
		return websocket.ErrCloseSent
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.server.hub.Unregister(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var req clientRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", "err", err)
			}
			return
		}
		c.server.handleClientRequest(c, req)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Error("write failed", "err", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// sendError delivers a minimal error frame without killing the
// connection.
func (c *Connection) sendError(err error) {
	_ = c.Send(errorMessage(err))
}

func decodeRequestData[T any](data json.RawMessage) (T, error) {
	var decoded T
	if len(data) == 0 {
		return decoded, nil
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		var zero T
		return zero, err
	}
	return decoded, nil
}
