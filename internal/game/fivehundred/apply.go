package fivehundred

import (
	"fmt"
	"slices"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// applyEvent folds one event into the state. Events must arrive in
// sequence; the returned state's event number equals the event's.
func applyEvent(g Game, ev game.Event) (Game, error) {
	if ev.SeqNumber() != g.EventNum+1 {
		return Game{}, apperr.Internal("event_number_mismatch",
			fmt.Sprintf("expected event %d, got %d", g.EventNum+1, ev.SeqNumber()))
	}
	g = g.clone()
	g.EventNum = ev.SeqNumber()

	switch e := ev.(type) {
	case DeckShuffledEvent:
		return applyDeckShuffled(g, e)
	case BidMadeEvent:
		return applyBidMade(g, e), nil
	case BiddingFinishedEvent:
		return applyBiddingFinished(g), nil
	case HiddenCardsTakenEvent:
		return applyHiddenCardsTaken(g), nil
	case DeclarerGaveUpEvent:
		g.TurnNumber++
		return g, nil
	case CardsPassedEvent:
		return applyCardsPassed(g, e)
	case CardPlayedEvent:
		return applyCardPlayed(g, e)
	case MarriagePointsAddedEvent:
		return applyMarriagePoints(g, e), nil
	case TrickTakenEvent:
		return applyTrickTaken(g, e), nil
	case RoundFinishedEvent:
		return applyRoundFinished(g, e), nil
	case GameEndedEvent:
		return applyGameEnded(g, e), nil
	default:
		return Game{}, apperr.Internal("event_type", fmt.Sprintf("unsupported event %T", ev))
	}
}

func applyDeckShuffled(g Game, ev DeckShuffledEvent) (Game, error) {
	deck := DeckFromCards(ev.Deck)
	kitty, err := deck.Draw(CardsToTake)
	if err != nil {
		return Game{}, err
	}
	for _, seat := range g.TakenSeats {
		cards, err := deck.Draw(CardsInStartingHand)
		if err != nil {
			return Game{}, err
		}
		info := g.Round.SeatInfos[seat]
		info.Hand = NewHand(cards)
		g.Round.SeatInfos[seat] = info
	}
	g.Round.CardsToTake = kitty
	g.Round.Phase = PhaseBidding
	g.ActiveSeat = g.Round.FirstSeat
	return g, nil
}

func applyBidMade(g Game, ev BidMadeEvent) Game {
	info := g.Round.SeatInfos[ev.Seat]
	info.Bid = ev.Bid
	g.Round.SeatInfos[ev.Seat] = info

	if ev.Bid > 0 {
		g.Round.HighestBid = &Bid{Seat: ev.Seat, Amount: ev.Bid}
	}
	if next := nextSeatToBid(ev.Seat, g.Round.SeatInfos); next != nil {
		g.ActiveSeat = *next
	}
	g.TurnNumber++
	return g
}

func applyBiddingFinished(g Game) Game {
	g.Round.Phase = PhaseFormingHands
	if g.Round.HighestBid != nil {
		g.ActiveSeat = g.Round.HighestBid.Seat
	}
	return g
}

func applyHiddenCardsTaken(g Game) Game {
	declarer := g.ActiveSeat
	info := g.Round.SeatInfos[declarer]
	info.Hand = info.Hand.WithAdded(g.Round.CardsToTake...)
	g.Round.SeatInfos[declarer] = info
	g.Round.CardsToTake = []Card{}
	return g
}

func applyCardsPassed(g Game, ev CardsPassedEvent) (Game, error) {
	declarer := g.ActiveSeat
	nextSeat := declarer.Next()
	prevSeat := declarer.Prev()

	declarerInfo := g.Round.SeatInfos[declarer]
	hand, err := declarerInfo.Hand.WithRemoved(ev.CardToNextSeat, ev.CardToPrevSeat)
	if err != nil {
		return Game{}, err
	}
	declarerInfo.Hand = hand
	g.Round.SeatInfos[declarer] = declarerInfo

	nextInfo := g.Round.SeatInfos[nextSeat]
	nextInfo.Hand = nextInfo.Hand.WithAdded(ev.CardToNextSeat)
	g.Round.SeatInfos[nextSeat] = nextInfo

	prevInfo := g.Round.SeatInfos[prevSeat]
	prevInfo.Hand = prevInfo.Hand.WithAdded(ev.CardToPrevSeat)
	g.Round.SeatInfos[prevSeat] = prevInfo

	g.Round.Phase = PhasePlayingCards
	g.TurnNumber++
	return g, nil
}

func applyCardPlayed(g Game, ev CardPlayedEvent) (Game, error) {
	firstOfTrick := g.Round.cardsOnBoardCount() == 0

	info := g.Round.SeatInfos[ev.Seat]
	hand, err := info.Hand.WithRemoved(ev.Card)
	if err != nil {
		return Game{}, err
	}
	info.Hand = hand
	g.Round.SeatInfos[ev.Seat] = info

	card := ev.Card
	g.Round.CardsOnBoard[ev.Seat] = &card

	if firstOfTrick {
		suit := card.Suit
		g.Round.RequiredSuit = &suit
		if g.Round.TrumpSuit == nil {
			trump := card.Suit
			g.Round.TrumpSuit = &trump
		}
	}
	g.ActiveSeat = ev.Seat.Next()
	g.TurnNumber++
	return g, nil
}

func applyMarriagePoints(g Game, ev MarriagePointsAddedEvent) Game {
	info := g.Round.SeatInfos[ev.Seat]
	info.MarriagePoints = append(slices.Clone(info.MarriagePoints), ev.Points)
	info.Points += ev.Points
	g.Round.SeatInfos[ev.Seat] = info
	g.Round.IsMarriageAnnounced = true
	return g
}

func applyTrickTaken(g Game, ev TrickTakenEvent) Game {
	trick := Trick{}
	trickPoints := 0
	for seat, card := range g.Round.CardsOnBoard {
		if card != nil {
			trick[seat] = *card
			trickPoints += card.Points()
		}
		g.Round.CardsOnBoard[seat] = nil
	}

	info := g.Round.SeatInfos[ev.Seat]
	info.Points += trickPoints
	info.TrickCount++
	g.Round.SeatInfos[ev.Seat] = info

	g.Round.Tricks = append(g.Round.Tricks, trick)
	g.Round.RequiredSuit = nil
	g.ActiveSeat = ev.Seat
	return g
}

func applyRoundFinished(g Game, ev RoundFinishedEvent) Game {
	for seat, delta := range ev.Points {
		g.Summary[seat] += delta
	}

	var biddingResult *Bid
	if g.Round.HighestBid != nil {
		bid := *g.Round.HighestBid
		biddingResult = &bid
	}
	g.Results = append(g.Results, RoundResult{
		RoundNumber:   ev.RoundNumber,
		BiddingResult: biddingResult,
		SeatPoints:    ev.Points,
	})

	firstSeat := nextTakenSeat(g.Round.FirstSeat, g.TakenSeats)
	g.Round = newRound(g.Round.RoundNumber+1, firstSeat, g.TakenSeats)
	g.ActiveSeat = firstSeat
	g.ReplaySafeEventNum = g.EventNum
	return g
}

func applyGameEnded(g Game, ev GameEndedEvent) Game {
	var winners, losers []Seat
	pointDiffs := make(map[Seat]int, len(g.Summary))
	for seat, points := range g.Summary {
		pointDiffs[seat] = GameStartingPoints - points
	}

	switch ev.Reason {
	case EndReasonFinished:
		if g.Round.RoundNumber >= g.Config.MaxRounds {
			// out of rounds, lowest score wins
			lowest := g.Summary[g.TakenSeats[0]]
			for _, seat := range g.TakenSeats {
				if g.Summary[seat] < lowest {
					lowest = g.Summary[seat]
				}
			}
			for _, seat := range g.TakenSeats {
				if g.Summary[seat] == lowest {
					winners = append(winners, seat)
				}
			}
		} else {
			for _, seat := range g.TakenSeats {
				if g.Summary[seat] <= 0 {
					winners = append(winners, seat)
				}
			}
		}
		for _, seat := range g.TakenSeats {
			if !slices.Contains(winners, seat) {
				losers = append(losers, seat)
			}
		}
	case EndReasonAborted:
		if ev.BlamedSeat != nil {
			losers = append(losers, *ev.BlamedSeat)
		}
		for _, seat := range g.TakenSeats {
			if ev.BlamedSeat == nil || seat != *ev.BlamedSeat {
				winners = append(winners, seat)
			}
		}
	case EndReasonCancelled:
	}

	round := newRound(0, g.Round.FirstSeat, g.TakenSeats)
	round.Phase = PhaseGameEnded
	g.Round = round
	g.Ending = &Ending{Winners: winners, Losers: losers, Reason: ev.Reason, PointDiffs: pointDiffs}
	g.ReplaySafeEventNum = g.EventNum
	return g
}

// nextSeatToBid prefers the seat to the left, then the right, skipping
// seats that have passed. Nil means nobody else can bid.
func nextSeatToBid(seat Seat, infos map[Seat]SeatInfo) *Seat {
	next := seat.Next()
	prev := seat.Prev()
	if infos[next].Bid >= 0 {
		return &next
	}
	if infos[prev].Bid >= 0 {
		return &prev
	}
	return nil
}

func nextTakenSeat(seat Seat, taken []Seat) Seat {
	for candidate := seat.Next(); candidate != seat; candidate = candidate.Next() {
		if slices.Contains(taken, candidate) {
			return candidate
		}
	}
	return seat
}
