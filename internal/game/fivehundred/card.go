// Package fivehundred implements the Five Hundred trick-taking game: the
// 24-card deck, the bidding/marriage/kitty rules and the deterministic
// command→event→state engine the table service runs.
package fivehundred

import (
	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Suit represents a card suit.
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// String returns the one-letter symbol of a suit.
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	case Spades:
		return "S"
	default:
		return "?"
	}
}

// ParseSuit converts a one-letter symbol into a suit.
func ParseSuit(symbol string) (Suit, error) {
	switch symbol {
	case "H":
		return Hearts, nil
	case "D":
		return Diamonds, nil
	case "C":
		return Clubs, nil
	case "S":
		return Spades, nil
	default:
		return 0, apperr.Parse("card_suit", "unknown suit symbol: "+symbol)
	}
}

// Rank represents a card rank. Five Hundred plays with six ranks only.
type Rank int

const (
	Nine Rank = iota
	Jack
	Queen
	King
	Ten
	Ace
)

var ranks = []Rank{Nine, Jack, Queen, King, Ten, Ace}

// String returns the one-letter symbol of a rank.
func (r Rank) String() string {
	switch r {
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// ParseRank converts a one-letter symbol into a rank.
func ParseRank(symbol string) (Rank, error) {
	switch symbol {
	case "9":
		return Nine, nil
	case "T":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	default:
		return 0, apperr.Parse("card_rank", "unknown rank symbol: "+symbol)
	}
}

// Points returns the card-point value of a rank.
func (r Rank) Points() int {
	switch r {
	case Nine:
		return 0
	case Jack:
		return 2
	case Queen:
		return 3
	case King:
		return 4
	case Ten:
		return 10
	case Ace:
		return 11
	default:
		return 0
	}
}

// Strength returns the trick-taking order of a rank. Ten outranks king.
func (r Rank) Strength() int { return int(r) }

// Card is an immutable playing card. Its textual form is rank then suit,
// e.g. "KC" for the king of clubs.
type Card struct {
	Suit Suit
	Rank Rank
}

// String returns the textual form of the card.
func (c Card) String() string { return c.Rank.String() + c.Suit.String() }

// Points returns the card-point value of the card.
func (c Card) Points() int { return c.Rank.Points() }

// ParseCard converts the textual form back into a card.
func ParseCard(symbol string) (Card, error) {
	if len(symbol) != 2 {
		return Card{}, apperr.Parse("card_symbol", "card symbol must be two characters: "+symbol)
	}
	rank, err := ParseRank(symbol[:1])
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(symbol[1:])
	if err != nil {
		return Card{}, err
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// MarshalText serializes the card as its textual form, so cards embed
// naturally in JSON arrays and map keys.
func (c Card) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText parses the textual form.
func (c *Card) UnmarshalText(text []byte) error {
	card, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// marriagePartner returns the king↔queen counterpart of the card, if the
// card can form a marriage at all.
func (c Card) marriagePartner() (Card, bool) {
	switch c.Rank {
	case King:
		return Card{Suit: c.Suit, Rank: Queen}, true
	case Queen:
		return Card{Suit: c.Suit, Rank: King}, true
	default:
		return Card{}, false
	}
}
