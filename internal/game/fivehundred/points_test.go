package fivehundred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeSeats() []Seat { return []Seat{1, 2, 3} }

func gameWithBid(t *testing.T, declarer Seat, bid int, cardPoints map[Seat]int) Game {
	t.Helper()
	g := NewGame(DefaultConfig(), threeSeats())
	g.Round.HighestBid = &Bid{Seat: declarer, Amount: bid}
	for seat, points := range cardPoints {
		info := g.Round.SeatInfos[seat]
		info.Points = points
		g.Round.SeatInfos[seat] = info
	}
	return g
}

func TestRoundToBidStep(t *testing.T) {
	tests := []struct {
		points, want int
	}{
		{0, 0}, {2, 0}, {3, 5}, {9, 10}, {17, 15}, {64, 65}, {47, 45}, {100, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundToBidStep(tt.points), "points=%d", tt.points)
	}
}

func TestPointsPerSeatDeclarerFails(t *testing.T) {
	g := gameWithBid(t, 1, 100, map[Seat]int{1: 47, 2: 9, 3: 64})
	declarer := Seat(1)

	deltas := pointsPerSeat(g, &declarer, false)
	assert.Equal(t, map[Seat]int{1: 100, 2: -10, 3: -65}, deltas)
}

func TestPointsPerSeatDeclarerSucceeds(t *testing.T) {
	g := gameWithBid(t, 1, 100, map[Seat]int{1: 103, 2: 17, 3: 0})
	declarer := Seat(1)

	deltas := pointsPerSeat(g, &declarer, false)
	assert.Equal(t, map[Seat]int{1: -100, 2: -15, 3: 0}, deltas)
}

func TestPointsPerSeatDefenderAtMustBidThresholdGainsNothing(t *testing.T) {
	g := gameWithBid(t, 1, 100, map[Seat]int{1: 103, 2: 17, 3: 0})
	g.Summary[2] = MustBidThreshold
	declarer := Seat(1)

	deltas := pointsPerSeat(g, &declarer, false)
	assert.Equal(t, 0, deltas[2])
}

func TestPointsPerSeatGiveUp(t *testing.T) {
	g := gameWithBid(t, 2, 80, map[Seat]int{1: 30, 2: 10, 3: 0})
	declarer := Seat(2)

	deltas := pointsPerSeat(g, &declarer, true)
	assert.Equal(t, map[Seat]int{1: -50, 2: 80, 3: -50}, deltas)
}

func TestPointsPerSeatAllPassed(t *testing.T) {
	g := NewGame(DefaultConfig(), threeSeats())
	deltas := pointsPerSeat(g, nil, false)
	require.Equal(t, map[Seat]int{1: 0, 2: 0, 3: 0}, deltas)
}
