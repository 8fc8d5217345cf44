package fivehundred

import (
	"slices"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Hand is an ordered set of cards, kept sorted by suit and descending
// strength. Mutating operations return a new hand.
type Hand struct {
	Cards []Card `json:"cards"`
}

// NewHand builds a sorted hand from the given cards.
func NewHand(cards []Card) Hand {
	copied := make([]Card, len(cards))
	copy(copied, cards)
	sortCards(copied)
	return Hand{Cards: copied}
}

func sortCards(cards []Card) {
	slices.SortFunc(cards, func(a, b Card) int {
		if a.Suit != b.Suit {
			return int(a.Suit) - int(b.Suit)
		}
		return b.Rank.Strength() - a.Rank.Strength()
	})
}

// Contains reports whether the hand holds the card.
func (h Hand) Contains(card Card) bool { return slices.Contains(h.Cards, card) }

// Size reports the number of cards held.
func (h Hand) Size() int { return len(h.Cards) }

// Points sums the card points held in the hand.
func (h Hand) Points() int {
	total := 0
	for _, card := range h.Cards {
		total += card.Points()
	}
	return total
}

// WithAdded returns a new hand with the cards added.
func (h Hand) WithAdded(cards ...Card) Hand {
	return NewHand(append(slices.Clone(h.Cards), cards...))
}

// WithRemoved returns a new hand without the given cards. Removing a card
// the hand does not hold means the engine reached an impossible state.
func (h Hand) WithRemoved(cards ...Card) (Hand, error) {
	remaining := slices.Clone(h.Cards)
	for _, card := range cards {
		i := slices.Index(remaining, card)
		if i < 0 {
			return Hand{}, apperr.Internal("card_not_in_hand", "card "+card.String()+" is not in the hand")
		}
		remaining = slices.Delete(remaining, i, i+1)
	}
	return Hand{Cards: remaining}, nil
}

// AllowedPlays returns the cards legal to play given the trick's required
// suit and the round's trump suit: required-suit cards if any are held,
// else trump cards if any are held, else the whole hand.
func (h Hand) AllowedPlays(requiredSuit, trumpSuit *Suit) []Card {
	if requiredSuit == nil || trumpSuit == nil {
		return slices.Clone(h.Cards)
	}
	matching := h.cardsOfSuit(*requiredSuit)
	if len(matching) > 0 {
		return matching
	}
	trumps := h.cardsOfSuit(*trumpSuit)
	if len(trumps) > 0 {
		return trumps
	}
	return slices.Clone(h.Cards)
}

func (h Hand) cardsOfSuit(suit Suit) []Card {
	var cards []Card
	for _, card := range h.Cards {
		if card.Suit == suit {
			cards = append(cards, card)
		}
	}
	return cards
}

// hasMarriage reports whether the hand holds a king and queen of any one
// suit.
func (h Hand) hasMarriage() bool {
	for _, card := range h.Cards {
		if card.Rank == King && h.Contains(Card{Suit: card.Suit, Rank: Queen}) {
			return true
		}
	}
	return false
}
