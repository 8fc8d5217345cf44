package server

import (
	"encoding/json"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

// Frame types the server sends over a table channel.
const (
	MessageTypeInfo        = "info"
	MessageTypeError       = "error"
	MessageTypeGameAction  = "game_action"
	MessageTypeTableAction = "table_action"
)

// Message is one server-to-client frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// clientRequest is one client-to-server frame: an action name plus its
// payload.
type clientRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// errorMessage maps an application error to the minimal frame clients
// may see. Internal details stay on the server.
func errorMessage(err error) *Message {
	code, reason, message := apperr.Public(err)
	return &Message{
		Type: MessageTypeError,
		Data: map[string]any{
			"code":    code,
			"reason":  reason,
			"message": message,
		},
	}
}

func infoMessage(text string) *Message {
	return &Message{Type: MessageTypeInfo, Data: map[string]any{"message": text}}
}

// gameActionMessage builds the per-user frame for a committed game
// action: the emitted events plus the game state projected for that
// user's seat.
func gameActionMessage(tbl *table.Table, events []game.Event) (func(userID string) *Message, error) {
	def, err := game.Lookup(tbl.Config.GameName)
	if err != nil {
		return nil, err
	}
	encoded := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		data, err := def.MarshalEvent(ev)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, data)
	}
	return func(userID string) *Message {
		seatNumber := 0
		if player, seated := tbl.PlayerByUserID(userID); seated {
			seatNumber = player.SeatNumber
		}
		var state map[string]any
		if tbl.State != nil {
			state = tbl.State.Public(seatNumber)
		}
		return &Message{
			Type: MessageTypeGameAction,
			Data: map[string]any{
				"events":       encoded,
				"game_state":   state,
				"table_status": string(tbl.Status),
			},
		}
	}, nil
}

// tableActionMessage builds the per-user frame for a table change.
func tableActionMessage(tbl *table.Table) func(userID string) *Message {
	return func(userID string) *Message {
		return &Message{
			Type: MessageTypeTableAction,
			Data: map[string]any{"table": tbl.PublicView(userID)},
		}
	}
}
