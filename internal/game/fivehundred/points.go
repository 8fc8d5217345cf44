package fivehundred

// pointsPerSeat computes the summary deltas a finished round applies.
// Negative deltas move a seat toward zero (the winning direction).
//
// Declarer: -bid when the collected card points (marriages included)
// reach the bid, +bid otherwise. Giving up always costs the full bid.
// Defenders: their card points rounded to the nearest multiple of five,
// negated; a defender already at or past MustBidThreshold gains nothing.
// On give-up each defender gains the configured give-up points instead.
func pointsPerSeat(g Game, declarer *Seat, givenUp bool) map[Seat]int {
	deltas := zeroPoints(g.TakenSeats)
	if declarer == nil || g.Round.HighestBid == nil {
		return deltas
	}
	bid := g.Round.HighestBid.Amount

	if givenUp {
		deltas[*declarer] = bid
		for _, seat := range g.TakenSeats {
			if seat != *declarer {
				deltas[seat] = -g.Config.GiveUpPoints
			}
		}
		return deltas
	}

	for _, seat := range g.TakenSeats {
		points := g.Round.SeatInfos[seat].Points
		if seat == *declarer {
			if points >= bid {
				deltas[seat] = -bid
			} else {
				deltas[seat] = bid
			}
			continue
		}
		if g.Summary[seat] >= MustBidThreshold {
			deltas[seat] = 0
			continue
		}
		deltas[seat] = -roundToBidStep(points)
	}
	return deltas
}

// roundToBidStep rounds to the nearest multiple of five; a remainder of
// two or less rounds down.
func roundToBidStep(points int) int {
	remainder := points % BidStep
	if remainder <= 2 {
		return points - remainder
	}
	return points + BidStep - remainder
}
