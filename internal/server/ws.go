package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

// WebSocket close codes for connect-time failures.
const (
	closeCodeAuthError    = 4003
	closeCodeUnknownTable = 4004
)

// handleWS upgrades the connection, authenticates the caller and joins
// them to the table's observer group. Failures after the upgrade are
// reported through a close frame so clients can tell why they were
// dropped.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	tableID := r.PathValue("id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}

	identity, err := s.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		closeWith(conn, closeCodeAuthError, "authentication failed")
		return
	}

	if _, err := s.manager.GetTable(r.Context(), tableID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			closeWith(conn, closeCodeUnknownTable, "unknown table")
		} else {
			closeWith(conn, websocket.CloseInternalServerErr, "table lookup failed")
		}
		return
	}

	c := newConnection(conn, tableID, identity.UserID, identity.ScreenName, s, s.log)
	s.hub.Register(c)
	c.start()
	_ = c.Send(infoMessage("connected to table " + tableID))
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

// Payloads of client-to-server table-channel actions.
type (
	joinData struct {
		PreferredSeat int `json:"preferred_seat"`
	}
	addBotData struct {
		BotKind       string `json:"bot_kind"`
		PreferredSeat int    `json:"preferred_seat"`
	}
	removeBotData struct {
		SeatNumber int `json:"seat_number"`
	}
	takeTurnData struct {
		CommandType string         `json:"command_type"`
		Params      map[string]any `json:"params"`
	}
	abortData struct {
		BlamedSeat int `json:"blamed_seat"`
	}
)

// handleClientRequest dispatches one frame from a connected observer.
// Errors go back to the sender only; successful mutations are broadcast
// to the whole group.
func (s *Server) handleClientRequest(c *Connection, req clientRequest) {
	ctx := c.ctx

	var (
		tbl    *table.Table
		events []game.Event
		err    error
	)
	switch req.Action {
	case "join_table":
		data, decodeErr := decodeRequestData[joinData](req.Data)
		if decodeErr != nil {
			c.sendError(apperr.Parse("payload", "could not decode join data"))
			return
		}
		tbl, err = s.manager.JoinTable(ctx, c.tableID, c.userID, c.screenName, data.PreferredSeat)

	case "leave_table":
		tbl, err = s.manager.LeaveTable(ctx, c.tableID, c.userID)

	case "add_bot":
		data, decodeErr := decodeRequestData[addBotData](req.Data)
		if decodeErr != nil {
			c.sendError(apperr.Parse("payload", "could not decode add-bot data"))
			return
		}
		tbl, err = s.manager.AddBotPlayer(ctx, c.tableID, data.BotKind, c.userID, data.PreferredSeat)

	case "remove_bot":
		data, decodeErr := decodeRequestData[removeBotData](req.Data)
		if decodeErr != nil {
			c.sendError(apperr.Parse("payload", "could not decode remove-bot data"))
			return
		}
		tbl, err = s.manager.RemoveBotPlayer(ctx, c.tableID, data.SeatNumber, c.userID)

	case "start_game":
		tbl, events, err = s.manager.StartGame(ctx, c.tableID, c.userID)

	case "take_turn":
		data, decodeErr := decodeRequestData[takeTurnData](req.Data)
		if decodeErr != nil {
			c.sendError(apperr.Parse("payload", "could not decode turn data"))
			return
		}
		tbl, events, err = s.manager.TakeRegularTurn(ctx, c.tableID, c.userID, data.CommandType, data.Params)

	case "take_automatic_turn":
		tbl, events, err = s.manager.TakeAutomaticTurn(ctx, c.tableID, c.userID)

	case "cancel_game":
		tbl, events, err = s.manager.CancelGame(ctx, c.tableID, c.userID)

	case "abort_game":
		data, decodeErr := decodeRequestData[abortData](req.Data)
		if decodeErr != nil {
			c.sendError(apperr.Parse("payload", "could not decode abort data"))
			return
		}
		tbl, events, err = s.manager.AbortGame(ctx, c.tableID, c.userID, data.BlamedSeat)

	default:
		c.sendError(apperr.Parse("unknown_action", "unknown action: "+req.Action))
		return
	}

	if err != nil {
		c.sendError(err)
		return
	}
	s.broadcastUpdate(c.tableID, tbl, events)
}

// broadcastUpdate fans a committed mutation out to the table's
// observers: game actions carry events plus each observer's own
// projection, table actions carry the public table view.
func (s *Server) broadcastUpdate(tableID string, tbl *table.Table, events []game.Event) {
	if len(events) > 0 {
		build, err := gameActionMessage(tbl, events)
		if err != nil {
			s.log.Error("could not build game action frame", "table_id", tableID, "err", err)
			return
		}
		s.hub.Broadcast(tableID, build)
		return
	}
	s.hub.Broadcast(tableID, tableActionMessage(tbl))
}
