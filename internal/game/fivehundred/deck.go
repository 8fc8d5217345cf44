package fivehundred

import (
	rand "math/rand/v2"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Deck is a stack of the 24 Five Hundred cards. It remembers its initial
// post-shuffle order, so a deck recorded in a deck-shuffled event replays
// the exact same deal.
type Deck struct {
	initial   []Card
	remaining []Card
}

// BuildDeck returns the canonical unshuffled 24-card deck.
func BuildDeck() *Deck {
	cards := make([]Card, 0, len(suits)*len(ranks))
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return newDeck(cards)
}

// NewShuffledDeck builds and shuffles a deck using the given RNG.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	d := BuildDeck()
	d.Shuffle(rng)
	return d
}

// DeckFromCards restores a deck from a recorded initial order.
func DeckFromCards(cards []Card) *Deck {
	copied := make([]Card, len(cards))
	copy(copied, cards)
	return newDeck(copied)
}

func newDeck(cards []Card) *Deck {
	remaining := make([]Card, len(cards))
	copy(remaining, cards)
	return &Deck{initial: cards, remaining: remaining}
}

// Shuffle randomizes the card order and resets the recorded initial order.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.remaining), func(i, j int) {
		d.remaining[i], d.remaining[j] = d.remaining[j], d.remaining[i]
	})
	copy(d.initial, d.remaining)
}

// Draw removes and returns the top n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n > len(d.remaining) {
		return nil, apperr.Internal("deck_exhausted", "not enough cards left in the deck")
	}
	drawn := make([]Card, n)
	copy(drawn, d.remaining[:n])
	d.remaining = d.remaining[n:]
	return drawn, nil
}

// Cards returns the initial post-shuffle order of the deck.
func (d *Deck) Cards() []Card {
	cards := make([]Card, len(d.initial))
	copy(cards, d.initial)
	return cards
}

// Remaining reports how many cards are left to draw.
func (d *Deck) Remaining() int { return len(d.remaining) }
