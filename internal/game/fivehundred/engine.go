package fivehundred

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// Engine is the Five Hundred rules engine. It is stateless; the same
// inputs always produce the same outputs.
type Engine struct{}

// NewEngine returns the engine.
func NewEngine() Engine { return Engine{} }

// Init implements game.Engine.
func (Engine) Init(cfg game.Config, seatNumbers []int) (game.State, error) {
	config, ok := cfg.(Config)
	if !ok {
		return nil, apperr.Internal("config_type", fmt.Sprintf("expected fivehundred.Config, got %T", cfg))
	}
	if len(seatNumbers) != MaxSeats {
		return nil, apperr.Rules("seat_count", fmt.Sprintf("five hundred needs exactly %d seats", MaxSeats))
	}
	seats := make([]Seat, 0, len(seatNumbers))
	for _, number := range seatNumbers {
		seat, err := ParseSeat(number)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return NewGame(config, seats), nil
}

// Process implements game.Engine: validate the command into a primary
// event, then apply and resolve until the cascade settles. Sequence
// numbers continue from the state's event number.
func (Engine) Process(state game.State, cmd game.Command, rng *rand.Rand) (game.State, []game.Event, error) {
	g, err := narrow(state)
	if err != nil {
		return nil, nil, err
	}

	primary, err := handleCommand(g, cmd, rng)
	if err != nil {
		return nil, nil, err
	}

	var events []game.Event
	current := primary
	for current != nil {
		current = withSeq(current, g.EventNum+1)
		g, err = applyEvent(g, current)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, current)
		current = resolve(g, current, rng)
	}
	return g, events, nil
}

// Apply implements game.Engine, used for replaying stored events.
func (Engine) Apply(state game.State, ev game.Event) (game.State, error) {
	g, err := narrow(state)
	if err != nil {
		return nil, err
	}
	return applyEvent(g, ev)
}

func narrow(state game.State) (Game, error) {
	g, ok := state.(Game)
	if !ok {
		return Game{}, apperr.Internal("state_type", fmt.Sprintf("expected fivehundred.Game, got %T", state))
	}
	return g, nil
}

func init() {
	game.Register(game.Definition{
		Name:      game.FiveHundred,
		SeatCount: MaxSeats,
		NewEngine: func() game.Engine { return NewEngine() },
		ParseCommand: func(commandType string, payload map[string]any) (game.Command, error) {
			return ParseCommand(commandType, payload)
		},
		ParseEvent:   ParseEvent,
		MarshalEvent: MarshalEvent,
		ParseConfig: func(raw map[string]any) (game.Config, error) {
			return ParseConfig(raw)
		},
		DecodeState: func(data []byte) (game.State, error) {
			return UnmarshalState(data)
		},
		StartCommand:  func() game.Command { return StartGameCommand{} },
		CancelCommand: func() game.Command { return EndCancelCommand{} },
		AbortCommand: func(blamedSeat int) game.Command {
			return EndAbortCommand{BlamedSeat: Seat(blamedSeat)}
		},
		MarshalState: func(state game.State) ([]byte, error) {
			g, err := narrow(state)
			if err != nil {
				return nil, err
			}
			return MarshalState(g)
		},
		Bots: map[string]game.BotStrategy{
			BotKindRandom: RandomBotStrategy{},
		},
	})
}
