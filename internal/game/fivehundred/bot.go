package fivehundred

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// BotKindRandom names the canonical random strategy.
const BotKindRandom = "random"

// RandomBotStrategy plays legal moves at random. It passes more eagerly
// the higher the standing bid already is.
type RandomBotStrategy struct{}

// Kind implements game.BotStrategy.
func (RandomBotStrategy) Kind() string { return BotKindRandom }

// CreateCommand implements game.BotStrategy.
func (RandomBotStrategy) CreateCommand(state game.State, rng *rand.Rand) (game.Command, error) {
	g, err := narrow(state)
	if err != nil {
		return nil, err
	}

	switch g.Round.Phase {
	case PhaseBidding:
		return randomBid(g, rng), nil

	case PhaseFormingHands:
		cards := g.activeSeatInfo().Hand.Cards
		if len(cards) < 2 {
			return nil, apperr.Internal("bot_hand_too_small", "cannot pass cards from a hand of fewer than two")
		}
		first := rng.IntN(len(cards))
		second := rng.IntN(len(cards) - 1)
		if second >= first {
			second++
		}
		return PassCardsCommand{CardToNextSeat: cards[first], CardToPrevSeat: cards[second]}, nil

	case PhasePlayingCards:
		allowed := g.activeSeatInfo().Hand.AllowedPlays(g.Round.RequiredSuit, g.Round.TrumpSuit)
		return PlayCardCommand{Card: allowed[rng.IntN(len(allowed))]}, nil

	default:
		return nil, apperr.Internal("bot_phase", fmt.Sprintf("no bot move exists in phase %q", g.Round.Phase))
	}
}

func randomBid(g Game, rng *rand.Rand) MakeBidCommand {
	if g.Summary[g.ActiveSeat] >= NotAllowedToBidThreshold {
		return MakeBidCommand{Bid: -1}
	}

	lowest := g.Config.MinBid
	if g.Round.HighestBid != nil {
		lowest = g.Round.HighestBid.Amount + BidStep
	}
	highest := MaxBid
	if !g.activeSeatInfo().Hand.hasMarriage() {
		highest = g.Config.MaxBidNoMarriage
	}
	if lowest > highest {
		return MakeBidCommand{Bid: -1}
	}

	current := g.Config.MinBid
	if g.Round.HighestBid != nil {
		current = g.Round.HighestBid.Amount
	}
	passingProbability := float64(current)/float64(MaxBid) + 0.3
	if rng.Float64() < passingProbability {
		return MakeBidCommand{Bid: -1}
	}

	steps := (highest-lowest)/BidStep + 1
	return MakeBidCommand{Bid: lowest + rng.IntN(steps)*BidStep}
}
