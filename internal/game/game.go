// Package game defines the game-agnostic contracts the table service is
// built on. A concrete game (currently only Five Hundred) registers an
// engine, parsers and bot strategies under its name; everything above this
// package dispatches through the registry and never imports game-specific
// code.
package game

import (
	rand "math/rand/v2"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Name identifies a registered game.
type Name string

// FiveHundred is the only game currently shipped.
const FiveHundred Name = "five_hundred"

// ParseName validates a raw game name against the registry.
func ParseName(raw string) (Name, error) {
	name := Name(raw)
	if _, ok := registry[name]; !ok {
		return "", apperr.Parse("unknown_game_name", "unknown game name: "+raw)
	}
	return name, nil
}

// Command is a player intention, produced by clients or bot strategies and
// validated by the engine.
type Command interface {
	CommandType() string
}

// Event is a fact the engine derived from a command. Events are append-only
// and carry a per-table monotonically increasing sequence number assigned
// during processing.
type Event interface {
	EventType() string
	SeqNumber() int64
}

// State is an immutable snapshot of a game in progress. Engines never
// mutate a state in place; they return a new value.
type State interface {
	// EventNumber is the sequence number of the last event applied.
	EventNumber() int64
	// ReplaySafeEventNumber is the highest event number up to which a
	// historical state may be reconstructed without leaking hidden cards.
	ReplaySafeEventNumber() int64
	// Ended reports whether the game reached a terminal phase.
	Ended() bool
	// ActiveSeatNumber is the seat expected to act next.
	ActiveSeatNumber() int
	// Public projects the state for an observer. A seat number > 0 reveals
	// that seat's private information; 0 yields the spectator view.
	Public(seatNumber int) map[string]any
}

// Config is a game-specific rule configuration.
type Config interface {
	ConfigMap() map[string]any
}

// Engine is the deterministic rules core of one game. All methods are pure:
// the same inputs produce the same outputs.
type Engine interface {
	// Init builds the pre-deal initial state for the given seats.
	Init(cfg Config, seatNumbers []int) (State, error)
	// Process validates cmd against state and returns the updated state
	// together with the full cascade of events, sequence numbers assigned.
	Process(state State, cmd Command, rng *rand.Rand) (State, []Event, error)
	// Apply folds a single event into state, used for replay.
	Apply(state State, ev Event) (State, error)
}

// BotStrategy synthesizes a legal command for the active seat.
type BotStrategy interface {
	Kind() string
	CreateCommand(state State, rng *rand.Rand) (Command, error)
}
