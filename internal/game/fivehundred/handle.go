package fivehundred

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// handleCommand validates a command against the current state and produces
// the primary event. Cascading follow-up events are the resolver's job.
func handleCommand(g Game, cmd game.Command, rng *rand.Rand) (game.Event, error) {
	switch c := cmd.(type) {
	case StartGameCommand:
		return DeckShuffledEvent{Deck: NewShuffledDeck(rng).Cards()}, nil
	case MakeBidCommand:
		return handleMakeBid(g, c.Bid)
	case PassCardsCommand:
		return handlePassCards(g, c.CardToNextSeat, c.CardToPrevSeat)
	case PlayCardCommand:
		return handlePlayCard(g, c.Card)
	case GiveUpCommand:
		return handleGiveUp(g)
	case EndCancelCommand:
		return GameEndedEvent{Reason: EndReasonCancelled}, nil
	case EndAbortCommand:
		blamed := c.BlamedSeat
		return GameEndedEvent{Reason: EndReasonAborted, BlamedSeat: &blamed}, nil
	default:
		return nil, apperr.Parse("command_type", fmt.Sprintf("unsupported command %T", cmd))
	}
}

func handleMakeBid(g Game, bid int) (game.Event, error) {
	if g.Round.Phase != PhaseBidding {
		return nil, apperr.Rules("wrong_phase", "could not make bid: not in the bidding phase")
	}
	if g.Summary[g.ActiveSeat] >= NotAllowedToBidThreshold && bid >= 0 {
		return nil, apperr.Rules("too_many_points_to_bid", "could not make bid: too many points, only passing is allowed")
	}
	if bid >= 0 {
		if bid%BidStep != 0 {
			return nil, apperr.Rules("bid_step", fmt.Sprintf("could not make bid: bid must be a multiple of %d", BidStep))
		}
		if bid < g.Config.MinBid {
			return nil, apperr.Rules("bid_too_low", fmt.Sprintf("could not make bid: bid must be at least %d", g.Config.MinBid))
		}
		if bid > MaxBid {
			return nil, apperr.Rules("bid_too_high", fmt.Sprintf("could not make bid: maximum bid is %d", MaxBid))
		}
		if bid > g.Config.MaxBidNoMarriage && !g.activeSeatInfo().Hand.hasMarriage() {
			return nil, apperr.Rules("bid_requires_marriage",
				fmt.Sprintf("could not make bid: bids above %d require a marriage in hand", g.Config.MaxBidNoMarriage))
		}
		if g.Round.HighestBid != nil && bid <= g.Round.HighestBid.Amount {
			return nil, apperr.Rules("bid_not_higher",
				fmt.Sprintf("could not make bid: bid must exceed the current highest bid (%d)", g.Round.HighestBid.Amount))
		}
	}
	return BidMadeEvent{Seat: g.ActiveSeat, Bid: bid}, nil
}

func handlePassCards(g Game, toNext, toPrev Card) (game.Event, error) {
	if g.Round.Phase != PhaseFormingHands {
		return nil, apperr.Rules("wrong_phase", "could not pass cards: not in the forming-hands phase")
	}
	hand := g.activeSeatInfo().Hand
	if hand.Size() != CardsInStartingHand+CardsToTake {
		return nil, apperr.Rules("hidden_cards_not_taken", "could not pass cards: declarer has not taken the hidden cards yet")
	}
	if !hand.Contains(toNext) || !hand.Contains(toPrev) {
		return nil, apperr.Rules("cards_not_in_hand", "could not pass cards: selected cards are not in the hand")
	}
	if toNext == toPrev {
		return nil, apperr.Rules("cards_not_distinct", "could not pass cards: the two cards must be distinct")
	}
	return CardsPassedEvent{CardToNextSeat: toNext, CardToPrevSeat: toPrev}, nil
}

func handlePlayCard(g Game, card Card) (game.Event, error) {
	if g.Round.Phase != PhasePlayingCards {
		return nil, apperr.Rules("wrong_phase", "could not play card: not in the playing-cards phase")
	}
	info := g.activeSeatInfo()
	if !info.Hand.Contains(card) {
		return nil, apperr.Rules("card_not_in_hand", "could not play card: selected card is not in the hand")
	}
	allowed := info.Hand.AllowedPlays(g.Round.RequiredSuit, g.Round.TrumpSuit)
	found := false
	for _, c := range allowed {
		if c == card {
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.Rules("card_not_allowed_to_play", "could not play card: selected card is not allowed to play")
	}
	return CardPlayedEvent{Seat: g.ActiveSeat, Card: card}, nil
}

func handleGiveUp(g Game) (game.Event, error) {
	if g.Round.Phase != PhaseFormingHands && g.Round.Phase != PhasePlayingCards {
		return nil, apperr.Rules("wrong_phase", "could not give up: round is not in play")
	}
	declarer := g.declarer()
	if declarer == nil || *declarer != g.ActiveSeat {
		return nil, apperr.Rules("not_declarer", "could not give up: only the declarer may give up")
	}
	return DeclarerGaveUpEvent{}, nil
}
