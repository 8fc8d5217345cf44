package fivehundred

// Game constants. These are rules of Five Hundred itself; tunable knobs
// live in Config.
const (
	MinSeats = 3
	MaxSeats = 3

	CardsInStartingHand = 7
	CardsToTake         = 3

	BidStep = 5
	MinBid  = 60
	MaxBid  = 200

	// A seat at or above this many game points may only pass.
	NotAllowedToBidThreshold = 1000
	// A seat at or above this many game points wins nothing as a defender.
	MustBidThreshold = 880

	LargeMarriagePoints = 40
	SmallMarriagePoints = 20

	GameStartingPoints = 500
)
