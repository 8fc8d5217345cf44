package fivehundred

import (
	rand "math/rand/v2"
	"slices"

	"github.com/gatismeikulis/card-game-app/internal/game"
)

// resolve inspects the state after an event was applied and decides
// whether a follow-up event must fire. processCommand drives this to a
// fixpoint, so one command can cascade into many events.
func resolve(g Game, last game.Event, rng *rand.Rand) game.Event {
	switch e := last.(type) {
	case BidMadeEvent:
		return resolveAfterBid(g)

	case BiddingFinishedEvent:
		if g.Round.HighestBid == nil {
			return RoundFinishedEvent{
				RoundNumber: g.Round.RoundNumber,
				Points:      zeroPoints(g.TakenSeats),
			}
		}
		return HiddenCardsTakenEvent{}

	case DeclarerGaveUpEvent:
		declarer := g.declarer()
		return RoundFinishedEvent{
			RoundNumber: g.Round.RoundNumber,
			Declarer:    declarer,
			GivenUp:     true,
			Points:      pointsPerSeat(g, declarer, true),
		}

	case CardPlayedEvent:
		return resolveAfterCardPlayed(g, e)

	case TrickTakenEvent:
		if g.activeSeatInfo().Hand.Size() == 0 {
			declarer := g.declarer()
			return RoundFinishedEvent{
				RoundNumber: g.Round.RoundNumber,
				Declarer:    declarer,
				Points:      pointsPerSeat(g, declarer, false),
			}
		}
		return nil

	case RoundFinishedEvent:
		if gameIsOver(g) {
			return GameEndedEvent{Reason: EndReasonFinished}
		}
		return DeckShuffledEvent{Deck: NewShuffledDeck(rng).Cards()}

	default:
		return nil
	}
}

// resolveAfterBid closes bidding once nobody can raise: either every seat
// passed, or a highest bidder stands alone against passed opponents.
func resolveAfterBid(g Game) game.Event {
	allPassed := true
	for _, info := range g.Round.SeatInfos {
		if info.Bid >= 0 {
			allPassed = false
			break
		}
	}
	if allPassed {
		return BiddingFinishedEvent{}
	}

	highest := g.Round.HighestBid
	if highest == nil {
		return nil
	}
	for seat, info := range g.Round.SeatInfos {
		if seat != highest.Seat && info.Bid >= 0 {
			return nil
		}
	}
	amount := highest.Amount
	by := highest.Seat
	return BiddingFinishedEvent{Bid: &amount, By: &by}
}

func resolveAfterCardPlayed(g Game, e CardPlayedEvent) game.Event {
	switch g.Round.cardsOnBoardCount() {
	case 1:
		// a lead can announce a marriage
		partner, ok := e.Card.marriagePartner()
		if !ok || !g.Round.SeatInfos[e.Seat].Hand.Contains(partner) {
			return nil
		}
		if g.Round.TrumpSuit != nil && e.Card.Suit == *g.Round.TrumpSuit {
			return MarriagePointsAddedEvent{Points: LargeMarriagePoints, Seat: e.Seat}
		}
		if g.Round.IsMarriageAnnounced {
			return MarriagePointsAddedEvent{Points: SmallMarriagePoints, Seat: e.Seat}
		}
		return nil

	case len(g.TakenSeats):
		winner, cards := trickWinner(g.Round)
		return TrickTakenEvent{Seat: winner, Cards: cards}

	default:
		return nil
	}
}

// trickWinner picks the seat holding the strongest card on the board:
// highest trump if any trump was played, else highest card of the
// required suit.
func trickWinner(r Round) (Seat, []Card) {
	var winner Seat
	var best *Card
	cards := make([]Card, 0, len(r.CardsOnBoard))

	stronger := func(candidate, current Card) bool {
		candidateTrump := r.TrumpSuit != nil && candidate.Suit == *r.TrumpSuit
		currentTrump := r.TrumpSuit != nil && current.Suit == *r.TrumpSuit
		if candidateTrump != currentTrump {
			return candidateTrump
		}
		if !candidateTrump {
			candidateRequired := r.RequiredSuit != nil && candidate.Suit == *r.RequiredSuit
			currentRequired := r.RequiredSuit != nil && current.Suit == *r.RequiredSuit
			if candidateRequired != currentRequired {
				return candidateRequired
			}
			if !candidateRequired {
				return false
			}
		}
		return candidate.Rank.Strength() > current.Rank.Strength()
	}

	seats := make([]Seat, 0, len(r.CardsOnBoard))
	for seat := range r.CardsOnBoard {
		seats = append(seats, seat)
	}
	slices.Sort(seats)

	for _, seat := range seats {
		card := r.CardsOnBoard[seat]
		if card == nil {
			continue
		}
		cards = append(cards, *card)
		if best == nil || stronger(*card, *best) {
			c := *card
			best = &c
			winner = seat
		}
	}
	return winner, cards
}

// gameIsOver reports whether a just-finished round ended the game: a seat
// reached zero, every seat is locked out of bidding, or the round limit
// was hit.
func gameIsOver(g Game) bool {
	for _, points := range g.Summary {
		if points <= 0 {
			return true
		}
	}
	allLockedOut := true
	for _, points := range g.Summary {
		if points < NotAllowedToBidThreshold {
			allLockedOut = false
			break
		}
	}
	if allLockedOut {
		return true
	}
	return g.Round.RoundNumber >= g.Config.MaxRounds
}

func zeroPoints(seats []Seat) map[Seat]int {
	points := make(map[Seat]int, len(seats))
	for _, seat := range seats {
		points[seat] = 0
	}
	return points
}
