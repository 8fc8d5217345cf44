package fivehundred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

func mustCards(t *testing.T, symbols ...string) []Card {
	t.Helper()
	cards := make([]Card, len(symbols))
	for i, symbol := range symbols {
		card, err := ParseCard(symbol)
		require.NoError(t, err)
		cards[i] = card
	}
	return cards
}

func TestHandSortedBySuitThenStrength(t *testing.T) {
	hand := NewHand(mustCards(t, "9H", "AH", "KC", "TH", "QC", "AC"))
	assert.Equal(t, mustCards(t, "AH", "TH", "9H", "AC", "QC", "KC"), hand.Cards)
}

func TestHandWithRemovedMissingCard(t *testing.T) {
	hand := NewHand(mustCards(t, "AH", "KH"))
	_, err := hand.WithRemoved(mustCards(t, "9S")[0])
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "card_not_in_hand", apperr.ReasonOf(err))
}

func TestHandAllowedPlays(t *testing.T) {
	hearts := Hearts
	clubs := Clubs

	hand := NewHand(mustCards(t, "AH", "9H", "KC", "9S"))

	t.Run("no required suit allows everything", func(t *testing.T) {
		assert.Len(t, hand.AllowedPlays(nil, nil), 4)
	})

	t.Run("required suit held restricts to it", func(t *testing.T) {
		allowed := hand.AllowedPlays(&hearts, &clubs)
		assert.ElementsMatch(t, mustCards(t, "AH", "9H"), allowed)
	})

	t.Run("no required suit cards falls back to trump", func(t *testing.T) {
		diamonds := Diamonds
		allowed := hand.AllowedPlays(&diamonds, &clubs)
		assert.ElementsMatch(t, mustCards(t, "KC"), allowed)
	})

	t.Run("neither suit held allows everything", func(t *testing.T) {
		diamonds := Diamonds
		noMatches := NewHand(mustCards(t, "KC", "9S"))
		allowed := noMatches.AllowedPlays(&diamonds, &hearts)
		assert.ElementsMatch(t, noMatches.Cards, allowed)
	})
}

// Removing a card that is not the last of its tier never changes the
// legal plays beyond dropping that card.
func TestAllowedPlaysStableUnderRemoval(t *testing.T) {
	required := Hearts
	trump := Clubs
	hand := NewHand(mustCards(t, "AH", "9H", "KC", "QC", "9S", "TD"))

	before := hand.AllowedPlays(&required, &trump)
	require.ElementsMatch(t, mustCards(t, "AH", "9H"), before)

	smaller, err := hand.WithRemoved(mustCards(t, "9H")[0])
	require.NoError(t, err)
	after := smaller.AllowedPlays(&required, &trump)
	assert.ElementsMatch(t, mustCards(t, "AH"), after)

	// removing a card outside the tier leaves the plays untouched
	smaller, err = hand.WithRemoved(mustCards(t, "9S")[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, before, smaller.AllowedPlays(&required, &trump))
}
