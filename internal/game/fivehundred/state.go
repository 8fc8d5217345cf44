package fivehundred

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Phase is the stage a round is in.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseBidding      Phase = "bidding"
	PhaseFormingHands Phase = "forming_hands"
	PhasePlayingCards Phase = "playing_cards"
	PhaseGameEnded    Phase = "game_ended"
)

// Bid is a seat's winning bid.
type Bid struct {
	Seat   Seat `json:"seat"`
	Amount int  `json:"amount"`
}

// SeatInfo is the round-local information about one seat.
type SeatInfo struct {
	Hand Hand `json:"hand"`
	// Bid is 0 while undecided, negative once passed.
	Bid int `json:"bid"`
	// Points are the card points won this round, marriages included.
	Points         int   `json:"points"`
	TrickCount     int   `json:"trick_count"`
	MarriagePoints []int `json:"marriage_points"`
}

func (si SeatInfo) clone() SeatInfo {
	si.Hand = Hand{Cards: slices.Clone(si.Hand.Cards)}
	si.MarriagePoints = slices.Clone(si.MarriagePoints)
	return si
}

// Trick is one completed trick: which seat played which card.
type Trick map[Seat]Card

// Round is the state of the round in progress.
type Round struct {
	SeatInfos    map[Seat]SeatInfo `json:"seat_infos"`
	CardsOnBoard map[Seat]*Card    `json:"cards_on_board"`
	Tricks       []Trick           `json:"tricks"`
	// CardsToTake is the face-down kitty the declarer picks up.
	CardsToTake  []Card `json:"cards_to_take"`
	RequiredSuit *Suit  `json:"required_suit"`
	TrumpSuit    *Suit  `json:"trump_suit"`
	HighestBid   *Bid   `json:"highest_bid"`
	Phase        Phase  `json:"phase"`
	RoundNumber  int    `json:"round_number"`
	// FirstSeat opened this round's bidding.
	FirstSeat           Seat `json:"first_seat"`
	IsMarriageAnnounced bool `json:"is_marriage_announced"`
}

// newRound creates an undealt round: empty hands, bidding not yet open.
func newRound(roundNumber int, firstSeat Seat, seats []Seat) Round {
	seatInfos := make(map[Seat]SeatInfo, len(seats))
	board := make(map[Seat]*Card, len(seats))
	for _, seat := range seats {
		seatInfos[seat] = SeatInfo{Hand: NewHand(nil), MarriagePoints: []int{}}
		board[seat] = nil
	}
	return Round{
		SeatInfos:    seatInfos,
		CardsOnBoard: board,
		Tricks:       []Trick{},
		CardsToTake:  []Card{},
		Phase:        PhaseInitializing,
		RoundNumber:  roundNumber,
		FirstSeat:    firstSeat,
	}
}

func (r Round) clone() Round {
	infos := make(map[Seat]SeatInfo, len(r.SeatInfos))
	for seat, info := range r.SeatInfos {
		infos[seat] = info.clone()
	}
	r.SeatInfos = infos
	r.CardsOnBoard = maps.Clone(r.CardsOnBoard)
	r.Tricks = slices.Clone(r.Tricks)
	r.CardsToTake = slices.Clone(r.CardsToTake)
	return r
}

// cardsOnBoardCount reports how many cards the current trick holds.
func (r Round) cardsOnBoardCount() int {
	count := 0
	for _, card := range r.CardsOnBoard {
		if card != nil {
			count++
		}
	}
	return count
}

// prevTrick returns the most recently completed trick, if any.
func (r Round) prevTrick() Trick {
	if len(r.Tricks) == 0 {
		return nil
	}
	return r.Tricks[len(r.Tricks)-1]
}

// RoundResult is the outcome of one finished round, kept for the UI.
type RoundResult struct {
	RoundNumber int `json:"round_number"`
	// BiddingResult is the winning bid, nil when everyone passed.
	BiddingResult *Bid `json:"bidding_result"`
	// SeatPoints are the summary deltas applied; negative moves a seat
	// toward zero.
	SeatPoints map[Seat]int `json:"seat_points"`
}

// EndReason says why a game ended.
type EndReason string

const (
	EndReasonFinished  EndReason = "finished"
	EndReasonAborted   EndReason = "aborted"
	EndReasonCancelled EndReason = "cancelled"
)

// Ending is the terminal outcome of a game.
type Ending struct {
	Winners []Seat    `json:"winners"`
	Losers  []Seat    `json:"losers"`
	Reason  EndReason `json:"reason"`
	// PointDiffs is starting points minus final summary per seat.
	PointDiffs map[Seat]int `json:"point_diffs"`
}

// Game is the full state of one Five Hundred game. It is treated as an
// immutable value: reducers return updated copies.
type Game struct {
	Round      Round         `json:"round"`
	Results    []RoundResult `json:"results"`
	Summary    map[Seat]int  `json:"summary"`
	ActiveSeat Seat          `json:"active_seat"`
	Ending     *Ending       `json:"ending"`
	Config     Config        `json:"game_config"`
	TakenSeats []Seat        `json:"taken_seats"`
	TurnNumber int           `json:"turn_number"`
	EventNum   int64         `json:"event_number"`
	// ReplaySafeEventNum advances on round boundaries; historical states at
	// or before it can be rebuilt without exposing live hands.
	ReplaySafeEventNum int64 `json:"replay_safe_event_number"`
}

// NewGame builds the pre-deal initial state for the given seats.
func NewGame(cfg Config, seats []Seat) Game {
	sorted := slices.Clone(seats)
	slices.Sort(sorted)
	summary := make(map[Seat]int, len(sorted))
	for _, seat := range sorted {
		summary[seat] = GameStartingPoints
	}
	firstSeat := sorted[0]
	return Game{
		Round:      newRound(1, firstSeat, sorted),
		Results:    []RoundResult{},
		Summary:    summary,
		ActiveSeat: firstSeat,
		Config:     cfg,
		TakenSeats: sorted,
	}
}

func (g Game) clone() Game {
	g.Round = g.Round.clone()
	g.Results = slices.Clone(g.Results)
	g.Summary = maps.Clone(g.Summary)
	g.TakenSeats = slices.Clone(g.TakenSeats)
	return g
}

// activeSeatInfo returns the seat info of the seat on turn.
func (g Game) activeSeatInfo() SeatInfo { return g.Round.SeatInfos[g.ActiveSeat] }

// declarer returns the highest-bidding seat, if bidding produced one.
func (g Game) declarer() *Seat {
	if g.Round.HighestBid == nil {
		return nil
	}
	seat := g.Round.HighestBid.Seat
	return &seat
}

// EventNumber implements game.State.
func (g Game) EventNumber() int64 { return g.EventNum }

// ReplaySafeEventNumber implements game.State.
func (g Game) ReplaySafeEventNumber() int64 { return g.ReplaySafeEventNum }

// Ended implements game.State.
func (g Game) Ended() bool { return g.Ending != nil }

// ActiveSeatNumber implements game.State.
func (g Game) ActiveSeatNumber() int { return g.ActiveSeat.Number() }

// Public implements game.State: the observer projection. Other seats'
// hands collapse to a card count and their round points and marriage
// details stay hidden; seatNumber > 0 reveals that seat's own hand.
func (g Game) Public(seatNumber int) map[string]any {
	seatInfos := make(map[string]any, len(g.Round.SeatInfos))
	for seat, info := range g.Round.SeatInfos {
		if seat.Number() == seatNumber {
			seatInfos[jsonSeatKey(seat)] = map[string]any{
				"hand":            cardStrings(info.Hand.Cards),
				"bid":             info.Bid,
				"points":          info.Points,
				"trick_count":     info.TrickCount,
				"marriage_points": info.MarriagePoints,
			}
		} else {
			seatInfos[jsonSeatKey(seat)] = map[string]any{
				"hand":            info.Hand.Size(),
				"bid":             info.Bid,
				"points":          nil,
				"trick_count":     info.TrickCount,
				"marriage_points": nil,
			}
		}
	}

	board := make(map[string]any, len(g.Round.CardsOnBoard))
	for seat, card := range g.Round.CardsOnBoard {
		if card != nil {
			board[jsonSeatKey(seat)] = card.String()
		} else {
			board[jsonSeatKey(seat)] = nil
		}
	}

	var prevTrick []string
	if trick := g.Round.prevTrick(); trick != nil {
		for _, card := range trick {
			prevTrick = append(prevTrick, card.String())
		}
		slices.Sort(prevTrick)
	}

	var highestBid any
	if g.Round.HighestBid != nil {
		highestBid = map[string]any{
			"seat":   g.Round.HighestBid.Seat.Number(),
			"amount": g.Round.HighestBid.Amount,
		}
	}

	summary := make(map[string]int, len(g.Summary))
	for seat, points := range g.Summary {
		summary[jsonSeatKey(seat)] = points
	}

	var ending any
	if g.Ending != nil {
		diffs := make(map[string]int, len(g.Ending.PointDiffs))
		for seat, diff := range g.Ending.PointDiffs {
			diffs[jsonSeatKey(seat)] = diff
		}
		ending = map[string]any{
			"winners":     seatNumbers(g.Ending.Winners),
			"losers":      seatNumbers(g.Ending.Losers),
			"reason":      string(g.Ending.Reason),
			"point_diffs": diffs,
		}
	}

	results := make([]map[string]any, 0, len(g.Results))
	for _, result := range g.Results {
		points := make(map[string]int, len(result.SeatPoints))
		for seat, delta := range result.SeatPoints {
			points[jsonSeatKey(seat)] = delta
		}
		var bidding any
		if result.BiddingResult != nil {
			bidding = map[string]any{
				"seat":   result.BiddingResult.Seat.Number(),
				"amount": result.BiddingResult.Amount,
			}
		}
		results = append(results, map[string]any{
			"round_number":   result.RoundNumber,
			"bidding_result": bidding,
			"seat_points":    points,
		})
	}

	return map[string]any{
		"round": map[string]any{
			"phase":                 string(g.Round.Phase),
			"round_number":          g.Round.RoundNumber,
			"first_seat":            g.Round.FirstSeat.Number(),
			"is_marriage_announced": g.Round.IsMarriageAnnounced,
			"required_suit":         suitSymbol(g.Round.RequiredSuit),
			"trump_suit":            suitSymbol(g.Round.TrumpSuit),
			"highest_bid":           highestBid,
			"cards_on_board":        board,
			"prev_trick":            prevTrick,
			"seat_infos":            seatInfos,
		},
		"results":                  results,
		"summary":                  summary,
		"active_seat":              g.ActiveSeat.Number(),
		"is_my_turn":               g.ActiveSeat.Number() == seatNumber,
		"turn_number":              g.TurnNumber,
		"event_number":             g.EventNum,
		"replay_safe_event_number": g.ReplaySafeEventNum,
		"ending":                   ending,
	}
}

// MarshalState serializes a game for the state blob and snapshot cache.
func MarshalState(g Game) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, apperr.Infra("state_marshal", err)
	}
	return data, nil
}

// UnmarshalState restores a game from its serialized form.
func UnmarshalState(data []byte) (Game, error) {
	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return Game{}, apperr.Parse("state_payload", "could not decode game state: "+err.Error())
	}
	return g, nil
}

func jsonSeatKey(seat Seat) string { return strconv.Itoa(seat.Number()) }

func suitSymbol(suit *Suit) any {
	if suit == nil {
		return nil
	}
	return suit.String()
}

func cardStrings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, card := range cards {
		out[i] = card.String()
	}
	return out
}

func seatNumbers(seats []Seat) []int {
	out := make([]int, len(seats))
	for i, seat := range seats {
		out[i] = seat.Number()
	}
	return out
}
