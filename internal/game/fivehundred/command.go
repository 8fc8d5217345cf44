package fivehundred

import (
	"fmt"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// Command type names on the wire.
const (
	CommandStartGame = "start_game"
	CommandMakeBid   = "make_bid"
	CommandPassCards = "pass_cards"
	CommandPlayCard  = "play_card"
	CommandGiveUp    = "give_up"
	CommandEndCancel = "end_cancel"
	CommandEndAbort  = "end_abort"
)

// StartGameCommand shuffles and deals the first round.
type StartGameCommand struct{}

func (StartGameCommand) CommandType() string { return CommandStartGame }

// MakeBidCommand places a bid; a negative bid passes.
type MakeBidCommand struct {
	Bid int
}

func (MakeBidCommand) CommandType() string { return CommandMakeBid }

// PassCardsCommand is the declarer handing one card to each neighbor.
type PassCardsCommand struct {
	CardToNextSeat Card
	CardToPrevSeat Card
}

func (PassCardsCommand) CommandType() string { return CommandPassCards }

// PlayCardCommand plays a card into the current trick.
type PlayCardCommand struct {
	Card Card
}

func (PlayCardCommand) CommandType() string { return CommandPlayCard }

// GiveUpCommand is the declarer conceding the round.
type GiveUpCommand struct{}

func (GiveUpCommand) CommandType() string { return CommandGiveUp }

// EndCancelCommand ends a game without a result.
type EndCancelCommand struct{}

func (EndCancelCommand) CommandType() string { return CommandEndCancel }

// EndAbortCommand ends a game blaming one seat.
type EndAbortCommand struct {
	BlamedSeat Seat
}

func (EndAbortCommand) CommandType() string { return CommandEndAbort }

// ParseCommand decodes a client command from its type name and params map.
// EndCancel and EndAbort are table-internal and deliberately not parseable
// from the wire.
func ParseCommand(commandType string, params map[string]any) (game.Command, error) {
	switch commandType {
	case CommandStartGame:
		return StartGameCommand{}, nil
	case CommandMakeBid:
		bid, err := paramInt(params, "bid")
		if err != nil {
			return nil, err
		}
		return MakeBidCommand{Bid: bid}, nil
	case CommandPassCards:
		toNext, err := paramCard(params, "card_to_next_seat")
		if err != nil {
			return nil, err
		}
		toPrev, err := paramCard(params, "card_to_prev_seat")
		if err != nil {
			return nil, err
		}
		return PassCardsCommand{CardToNextSeat: toNext, CardToPrevSeat: toPrev}, nil
	case CommandPlayCard:
		card, err := paramCard(params, "card")
		if err != nil {
			return nil, err
		}
		return PlayCardCommand{Card: card}, nil
	case CommandGiveUp:
		return GiveUpCommand{}, nil
	default:
		return nil, apperr.Parse("command_type", "unknown command type: "+commandType)
	}
}

func paramInt(params map[string]any, key string) (int, error) {
	value, ok := params[key]
	if !ok {
		return 0, apperr.Parse("command_param", "missing command param: "+key)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, apperr.Parse("command_param", fmt.Sprintf("param %s must be a number, got %T", key, value))
	}
}

func paramCard(params map[string]any, key string) (Card, error) {
	value, ok := params[key].(string)
	if !ok {
		return Card{}, apperr.Parse("command_param", "missing or non-string command param: "+key)
	}
	return ParseCard(value)
}
