package fivehundred

import (
	"encoding/json"
	"strconv"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// Event type names on the wire and in the event log.
const (
	EventDeckShuffled        = "deck_shuffled"
	EventBidMade             = "bid_made"
	EventBiddingFinished     = "bidding_finished"
	EventHiddenCardsTaken    = "hidden_cards_taken"
	EventDeclarerGaveUp      = "declarer_gave_up"
	EventCardsPassed         = "cards_passed"
	EventCardPlayed          = "card_played"
	EventMarriagePointsAdded = "marriage_points_added"
	EventTrickTaken          = "trick_taken"
	EventRoundFinished       = "round_finished"
	EventGameEnded           = "game_ended"
)

// Base carries the per-table sequence number every event has.
type Base struct {
	Seq int64 `json:"seq_number"`
}

// SeqNumber implements game.Event.
func (b Base) SeqNumber() int64 { return b.Seq }

// DeckShuffledEvent records the full post-shuffle deck order, making the
// deal reproducible on replay.
type DeckShuffledEvent struct {
	Base
	Deck []Card `json:"deck"`
}

func (DeckShuffledEvent) EventType() string { return EventDeckShuffled }

// BidMadeEvent records one seat's bid; negative means pass.
type BidMadeEvent struct {
	Base
	Seat Seat `json:"seat"`
	Bid  int  `json:"bid"`
}

func (BidMadeEvent) EventType() string { return EventBidMade }

// BiddingFinishedEvent closes bidding. Bid and By are nil when everyone
// passed.
type BiddingFinishedEvent struct {
	Base
	Bid *int  `json:"bid"`
	By  *Seat `json:"by"`
}

func (BiddingFinishedEvent) EventType() string { return EventBiddingFinished }

// HiddenCardsTakenEvent hands the kitty to the declarer.
type HiddenCardsTakenEvent struct {
	Base
}

func (HiddenCardsTakenEvent) EventType() string { return EventHiddenCardsTaken }

// DeclarerGaveUpEvent records the declarer conceding the round.
type DeclarerGaveUpEvent struct {
	Base
}

func (DeclarerGaveUpEvent) EventType() string { return EventDeclarerGaveUp }

// CardsPassedEvent is the declarer giving one card to each neighbor.
type CardsPassedEvent struct {
	Base
	CardToNextSeat Card `json:"card_to_next_seat"`
	CardToPrevSeat Card `json:"card_to_prev_seat"`
}

func (CardsPassedEvent) EventType() string { return EventCardsPassed }

// CardPlayedEvent puts a card on the board.
type CardPlayedEvent struct {
	Base
	Seat Seat `json:"seat"`
	Card Card `json:"card"`
}

func (CardPlayedEvent) EventType() string { return EventCardPlayed }

// MarriagePointsAddedEvent awards marriage points to a seat.
type MarriagePointsAddedEvent struct {
	Base
	Points int  `json:"points"`
	Seat   Seat `json:"seat"`
}

func (MarriagePointsAddedEvent) EventType() string { return EventMarriagePointsAdded }

// TrickTakenEvent closes a trick.
type TrickTakenEvent struct {
	Base
	Seat  Seat   `json:"seat"`
	Cards []Card `json:"cards"`
}

func (TrickTakenEvent) EventType() string { return EventTrickTaken }

// RoundFinishedEvent closes a round and carries the summary deltas;
// negative deltas move a seat toward zero.
type RoundFinishedEvent struct {
	Base
	RoundNumber int          `json:"round_number"`
	Declarer    *Seat        `json:"declarer"`
	GivenUp     bool         `json:"given_up"`
	Points      map[Seat]int `json:"points"`
}

func (RoundFinishedEvent) EventType() string { return EventRoundFinished }

// GameEndedEvent terminates the game.
type GameEndedEvent struct {
	Base
	Reason     EndReason `json:"reason"`
	BlamedSeat *Seat     `json:"blamed_seat"`
}

func (GameEndedEvent) EventType() string { return EventGameEnded }

// withSeq returns a copy of the event with its sequence number set.
func withSeq(ev game.Event, seq int64) game.Event {
	switch e := ev.(type) {
	case DeckShuffledEvent:
		e.Seq = seq
		return e
	case BidMadeEvent:
		e.Seq = seq
		return e
	case BiddingFinishedEvent:
		e.Seq = seq
		return e
	case HiddenCardsTakenEvent:
		e.Seq = seq
		return e
	case DeclarerGaveUpEvent:
		e.Seq = seq
		return e
	case CardsPassedEvent:
		e.Seq = seq
		return e
	case CardPlayedEvent:
		e.Seq = seq
		return e
	case MarriagePointsAddedEvent:
		e.Seq = seq
		return e
	case TrickTakenEvent:
		e.Seq = seq
		return e
	case RoundFinishedEvent:
		e.Seq = seq
		return e
	case GameEndedEvent:
		e.Seq = seq
		return e
	default:
		return ev
	}
}

// MarshalEvent serializes an event as a flat object carrying its type tag.
func MarshalEvent(ev game.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, apperr.Infra("event_marshal", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, apperr.Infra("event_marshal", err)
	}
	fields["type"] = json.RawMessage(strconv.Quote(ev.EventType()))
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, apperr.Infra("event_marshal", err)
	}
	return data, nil
}

func decodeEvent[E game.Event](data []byte, eventType string) (game.Event, error) {
	var ev E
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, apperr.Parse("event_payload", "could not decode "+eventType+" event: "+err.Error())
	}
	return ev, nil
}

// ParseEvent restores an event from its serialized form.
func ParseEvent(data []byte) (game.Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, apperr.Parse("event_payload", "could not decode event: "+err.Error())
	}

	switch head.Type {
	case EventDeckShuffled:
		return decodeEvent[DeckShuffledEvent](data, head.Type)
	case EventBidMade:
		return decodeEvent[BidMadeEvent](data, head.Type)
	case EventBiddingFinished:
		return decodeEvent[BiddingFinishedEvent](data, head.Type)
	case EventHiddenCardsTaken:
		return decodeEvent[HiddenCardsTakenEvent](data, head.Type)
	case EventDeclarerGaveUp:
		return decodeEvent[DeclarerGaveUpEvent](data, head.Type)
	case EventCardsPassed:
		return decodeEvent[CardsPassedEvent](data, head.Type)
	case EventCardPlayed:
		return decodeEvent[CardPlayedEvent](data, head.Type)
	case EventMarriagePointsAdded:
		return decodeEvent[MarriagePointsAddedEvent](data, head.Type)
	case EventTrickTaken:
		return decodeEvent[TrickTakenEvent](data, head.Type)
	case EventRoundFinished:
		return decodeEvent[RoundFinishedEvent](data, head.Type)
	case EventGameEnded:
		return decodeEvent[GameEndedEvent](data, head.Type)
	default:
		return nil, apperr.Parse("event_type", "unknown event type: "+head.Type)
	}
}
