package table

import (
	"encoding/json"
	"time"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// tableJSON is the stored form of a table. The game state is embedded as
// a raw blob so the registry's per-game codec owns its layout.
type tableJSON struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	GameName    string          `json:"game_name"`
	GameConfig  map[string]any  `json:"game_config"`
	TableConfig Settings        `json:"table_config"`
	Players     []Player        `json:"players"`
	Status      Status          `json:"status"`
	State       json.RawMessage `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Marshal serializes the table, state blob included.
func (t *Table) Marshal() ([]byte, error) {
	def, err := game.Lookup(t.Config.GameName)
	if err != nil {
		return nil, err
	}
	var state json.RawMessage
	if t.State != nil {
		blob, err := def.MarshalState(t.State)
		if err != nil {
			return nil, err
		}
		state = blob
	}
	data, err := json.Marshal(tableJSON{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		GameName:    string(t.Config.GameName),
		GameConfig:  t.Config.GameConfig.ConfigMap(),
		TableConfig: t.Config.Settings,
		Players:     t.Players,
		Status:      t.Status,
		State:       state,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	})
	if err != nil {
		return nil, apperr.Infra("table_marshal", err)
	}
	return data, nil
}

// Unmarshal restores a table from its stored form.
func Unmarshal(data []byte) (*Table, error) {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.Parse("table_payload", "could not decode table: "+err.Error())
	}
	name, err := game.ParseName(raw.GameName)
	if err != nil {
		return nil, err
	}
	def, err := game.Lookup(name)
	if err != nil {
		return nil, err
	}
	cfg, err := def.ParseConfig(raw.GameConfig)
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(string(raw.Status))
	if err != nil {
		return nil, err
	}

	t := &Table{
		ID:      raw.ID,
		OwnerID: raw.OwnerID,
		Config: Config{
			GameName:   name,
			GameConfig: cfg,
			Settings:   raw.TableConfig,
		},
		Players:   raw.Players,
		Status:    status,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	if len(raw.State) > 0 && string(raw.State) != "null" {
		state, err := def.DecodeState(raw.State)
		if err != nil {
			return nil, err
		}
		t.State = state
	}
	return t, nil
}

// PublicView projects the table for one observer. A seated caller sees
// their own hand through the game state projection; everyone else gets
// the spectator view.
func (t *Table) PublicView(userID string) map[string]any {
	seatNumber := 0
	if player, seated := t.PlayerByUserID(userID); seated {
		seatNumber = player.SeatNumber
	}

	players := make([]map[string]any, 0, len(t.Players))
	for _, player := range t.Players {
		players = append(players, map[string]any{
			"id":          player.ID,
			"seat_number": player.SeatNumber,
			"screen_name": player.ScreenName,
			"is_bot":      player.IsBot(),
			"bot_kind":    player.BotKind,
		})
	}

	var state map[string]any
	if t.State != nil {
		state = t.State.Public(seatNumber)
	}

	view := map[string]any{
		"id":         t.ID,
		"owner_id":   t.OwnerID,
		"status":     string(t.Status),
		"players":    players,
		"game_state": state,
		"created_at": t.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for key, value := range t.Config.Map() {
		view[key] = value
	}
	return view
}
