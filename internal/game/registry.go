package game

import (
	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Definition bundles everything the service needs to host one game: the
// engine plus the parsers that turn wire payloads back into domain values.
type Definition struct {
	Name Name

	NewEngine func() Engine

	// ParseCommand decodes a client command payload.
	ParseCommand func(commandType string, payload map[string]any) (Command, error)
	// ParseEvent decodes a stored event row.
	ParseEvent func(data []byte) (Event, error)
	// MarshalEvent serializes an event for the log and for broadcast.
	MarshalEvent func(ev Event) ([]byte, error)
	// ParseConfig validates a raw rule configuration.
	ParseConfig func(raw map[string]any) (Config, error)
	// DecodeState deserializes a state blob produced by MarshalState.
	DecodeState func(data []byte) (State, error)
	// MarshalState serializes a state for storage.
	MarshalState func(state State) ([]byte, error)

	// StartCommand, CancelCommand and AbortCommand build the lifecycle
	// commands the table layer issues without knowing the game.
	StartCommand  func() Command
	CancelCommand func() Command
	AbortCommand  func(blamedSeat int) Command

	// Bots maps bot kind to strategy.
	Bots map[string]BotStrategy

	// SeatCount is the fixed number of seats the game plays with.
	SeatCount int
}

var registry = map[Name]Definition{}

// Register installs a game definition. Called from game package init
// functions; duplicate registration panics since it is a programmer error.
func Register(def Definition) {
	if _, dup := registry[def.Name]; dup {
		panic("game: duplicate registration for " + string(def.Name))
	}
	registry[def.Name] = def
}

// Lookup returns the definition for name.
func Lookup(name Name) (Definition, error) {
	def, ok := registry[name]
	if !ok {
		return Definition{}, apperr.Parse("unknown_game_name", "unknown game name: "+string(name))
	}
	return def, nil
}

// Bot resolves a bot strategy by kind for the named game.
func Bot(name Name, kind string) (BotStrategy, error) {
	def, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	strategy, ok := def.Bots[kind]
	if !ok {
		return nil, apperr.Parse("unknown_bot_kind", "unknown bot kind: "+kind)
	}
	return strategy, nil
}
