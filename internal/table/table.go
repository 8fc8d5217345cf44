// Package table implements the table aggregate: who sits where, the
// lifecycle from open table to finished game, and the gate every game
// command passes through before it reaches the rules engine.
package table

import (
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// Status is the table's lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusAborted    Status = "aborted"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusNotStarted, StatusInProgress, StatusFinished, StatusAborted, StatusCancelled:
		return Status(raw), nil
	default:
		return "", apperr.Parse("table_status", "unknown table status: "+raw)
	}
}

// Player is a seat occupant, human or bot.
type Player struct {
	ID         string `json:"id"`
	SeatNumber int    `json:"seat_number"`
	ScreenName string `json:"screen_name"`
	// UserID is empty for bots.
	UserID string `json:"user_id,omitempty"`
	// BotKind is empty for humans.
	BotKind string `json:"bot_kind,omitempty"`
}

// IsBot reports whether the player is machine-operated.
func (p Player) IsBot() bool { return p.BotKind != "" }

// Table is the aggregate root: players, lifecycle status and, once the
// game started, the embedded game state.
type Table struct {
	ID      string
	OwnerID string
	Config  Config
	Players []Player
	Status  Status
	// State is nil until the game starts.
	State     game.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an open table owned by ownerID.
func New(ownerID string, cfg Config, now time.Time) *Table {
	return &Table{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Config:    cfg,
		Players:   []Player{},
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlayerByUserID finds the human player seated for userID.
func (t *Table) PlayerByUserID(userID string) (Player, bool) {
	for _, player := range t.Players {
		if player.UserID == userID && userID != "" {
			return player, true
		}
	}
	return Player{}, false
}

// PlayerBySeat finds the player on the given seat.
func (t *Table) PlayerBySeat(seatNumber int) (Player, bool) {
	for _, player := range t.Players {
		if player.SeatNumber == seatNumber {
			return player, true
		}
	}
	return Player{}, false
}

func (t *Table) seatNumbers() []int {
	numbers := make([]int, len(t.Players))
	for i, player := range t.Players {
		numbers[i] = player.SeatNumber
	}
	return numbers
}

func (t *Table) freeSeats() []int {
	def, err := game.Lookup(t.Config.GameName)
	if err != nil {
		return nil
	}
	var free []int
	for seat := 1; seat <= def.SeatCount; seat++ {
		if _, taken := t.PlayerBySeat(seat); !taken {
			free = append(free, seat)
		}
	}
	return free
}

// pickSeat honors a preferred seat or draws a random free one.
// preferredSeat 0 means no preference.
func (t *Table) pickSeat(preferredSeat int, rng *rand.Rand) (int, error) {
	free := t.freeSeats()
	if len(free) == 0 || len(t.Players) >= t.Config.Settings.MaxSeats {
		return 0, apperr.Rules("table_full", "the table has no free seats")
	}
	if preferredSeat == 0 {
		return free[rng.IntN(len(free))], nil
	}
	for _, seat := range free {
		if seat == preferredSeat {
			return seat, nil
		}
	}
	return 0, apperr.Rules("seat_taken", fmt.Sprintf("seat %d is not available", preferredSeat))
}

func (t *Table) requireStatus(status Status, operation string) error {
	if t.Status != status {
		return apperr.Rules("wrong_table_status",
			fmt.Sprintf("could not %s: table is %s", operation, t.Status))
	}
	return nil
}

func (t *Table) requireOwner(userID, operation string) error {
	if t.OwnerID != userID {
		return apperr.Rules("not_owner", "could not "+operation+": only the table owner may do this")
	}
	return nil
}

// AddHumanPlayer seats a user. preferredSeat 0 draws a random free seat.
func (t *Table) AddHumanPlayer(userID, screenName string, preferredSeat int, rng *rand.Rand) error {
	if err := t.requireStatus(StatusNotStarted, "join"); err != nil {
		return err
	}
	if _, seated := t.PlayerByUserID(userID); seated {
		return apperr.Rules("already_seated", "user is already seated at this table")
	}
	seat, err := t.pickSeat(preferredSeat, rng)
	if err != nil {
		return err
	}
	t.Players = append(t.Players, Player{
		ID:         "human-" + userID,
		SeatNumber: seat,
		ScreenName: screenName,
		UserID:     userID,
	})
	return nil
}

// AddBotPlayer seats a bot of the given kind. Owner only.
func (t *Table) AddBotPlayer(botKind, initiatedBy string, preferredSeat int, rng *rand.Rand) error {
	if err := t.requireStatus(StatusNotStarted, "add bot"); err != nil {
		return err
	}
	if err := t.requireOwner(initiatedBy, "add a bot"); err != nil {
		return err
	}
	if !t.Config.Settings.BotsAllowed {
		return apperr.Rules("bots_not_allowed", "bots are not allowed at this table")
	}
	if _, err := game.Bot(t.Config.GameName, botKind); err != nil {
		return err
	}
	seat, err := t.pickSeat(preferredSeat, rng)
	if err != nil {
		return err
	}
	t.Players = append(t.Players, Player{
		ID:         "bot-" + uuid.NewString(),
		SeatNumber: seat,
		ScreenName: botKind + "-bot",
		BotKind:    botKind,
	})
	return nil
}

// RemoveHumanPlayer unseats the user.
func (t *Table) RemoveHumanPlayer(userID string) error {
	if err := t.requireStatus(StatusNotStarted, "leave"); err != nil {
		return err
	}
	player, seated := t.PlayerByUserID(userID)
	if !seated {
		return apperr.Rules("not_seated", "user is not seated at this table")
	}
	t.removePlayer(player.ID)
	return nil
}

// RemoveBotPlayer unseats the bot on the given seat. Owner only.
func (t *Table) RemoveBotPlayer(seatNumber int, initiatedBy string) error {
	if err := t.requireStatus(StatusNotStarted, "remove bot"); err != nil {
		return err
	}
	if err := t.requireOwner(initiatedBy, "remove a bot"); err != nil {
		return err
	}
	player, seated := t.PlayerBySeat(seatNumber)
	if !seated || !player.IsBot() {
		return apperr.Rules("not_a_bot", fmt.Sprintf("seat %d has no bot to remove", seatNumber))
	}
	t.removePlayer(player.ID)
	return nil
}

func (t *Table) removePlayer(playerID string) {
	players := t.Players[:0]
	for _, player := range t.Players {
		if player.ID != playerID {
			players = append(players, player)
		}
	}
	t.Players = players
}

// StartGame initializes the game state and deals the first round. Owner
// only; enough seats must be filled.
func (t *Table) StartGame(initiatedBy string, rng *rand.Rand) ([]game.Event, error) {
	if err := t.requireStatus(StatusNotStarted, "start the game"); err != nil {
		return nil, err
	}
	if err := t.requireOwner(initiatedBy, "start the game"); err != nil {
		return nil, err
	}
	if len(t.Players) < t.Config.Settings.MinSeats {
		return nil, apperr.Rules("not_enough_players",
			fmt.Sprintf("need at least %d players to start", t.Config.Settings.MinSeats))
	}

	def, err := game.Lookup(t.Config.GameName)
	if err != nil {
		return nil, err
	}
	state, err := def.NewEngine().Init(t.Config.GameConfig, t.seatNumbers())
	if err != nil {
		return nil, err
	}
	events, err := t.process(def, state, def.StartCommand(), rng)
	if err != nil {
		return nil, err
	}
	t.Status = StatusInProgress
	return events, nil
}

// TakeRegularTurn runs a command for the human on the active seat.
func (t *Table) TakeRegularTurn(userID string, cmd game.Command, rng *rand.Rand) ([]game.Event, error) {
	if err := t.requireStatus(StatusInProgress, "take a turn"); err != nil {
		return nil, err
	}
	player, seated := t.PlayerByUserID(userID)
	if !seated {
		return nil, apperr.Rules("not_seated", "user is not seated at this table")
	}
	if player.SeatNumber != t.State.ActiveSeatNumber() {
		return nil, apperr.Rules("not_your_turn", "it is not this player's turn")
	}
	def, err := game.Lookup(t.Config.GameName)
	if err != nil {
		return nil, err
	}
	events, err := t.process(def, t.State, cmd, rng)
	if err != nil {
		return nil, err
	}
	t.finishIfEnded()
	return events, nil
}

// TakeAutomaticTurn makes the bot on the active seat move. Any seated
// player may trigger it.
func (t *Table) TakeAutomaticTurn(initiatedBy string, rng *rand.Rand) ([]game.Event, error) {
	if err := t.requireStatus(StatusInProgress, "take an automatic turn"); err != nil {
		return nil, err
	}
	if _, seated := t.PlayerByUserID(initiatedBy); !seated {
		return nil, apperr.Rules("not_seated", "only seated players may trigger a bot turn")
	}
	active, onSeat := t.PlayerBySeat(t.State.ActiveSeatNumber())
	if !onSeat || !active.IsBot() {
		return nil, apperr.Rules("active_seat_not_bot", "the active seat is not played by a bot")
	}
	strategy, err := game.Bot(t.Config.GameName, active.BotKind)
	if err != nil {
		return nil, err
	}
	cmd, err := strategy.CreateCommand(t.State, rng)
	if err != nil {
		return nil, err
	}
	def, err := game.Lookup(t.Config.GameName)
	if err != nil {
		return nil, err
	}
	events, err := t.process(def, t.State, cmd, rng)
	if err != nil {
		return nil, err
	}
	t.finishIfEnded()
	return events, nil
}

// CancelGame ends a game without a result. Owner only.
func (t *Table) CancelGame(initiatedBy string, rng *rand.Rand) ([]game.Event, error) {
	if err := t.requireOwner(initiatedBy, "cancel the game"); err != nil {
		return nil, err
	}
	switch t.Status {
	case StatusNotStarted:
		t.Status = StatusCancelled
		return nil, nil
	case StatusInProgress:
		def, err := game.Lookup(t.Config.GameName)
		if err != nil {
			return nil, err
		}
		events, err := t.process(def, t.State, def.CancelCommand(), rng)
		if err != nil {
			return nil, err
		}
		t.Status = StatusCancelled
		return events, nil
	default:
		return nil, apperr.Rules("wrong_table_status",
			fmt.Sprintf("could not cancel the game: table is %s", t.Status))
	}
}

// AbortGame ends a game blaming one seat. Owner only.
func (t *Table) AbortGame(initiatedBy string, blamedSeat int, rng *rand.Rand) ([]game.Event, error) {
	if err := t.requireStatus(StatusInProgress, "abort the game"); err != nil {
		return nil, err
	}
	if err := t.requireOwner(initiatedBy, "abort the game"); err != nil {
		return nil, err
	}
	if _, onSeat := t.PlayerBySeat(blamedSeat); !onSeat {
		return nil, apperr.Rules("seat_not_taken", fmt.Sprintf("no player on seat %d to blame", blamedSeat))
	}
	def, err := game.Lookup(t.Config.GameName)
	if err != nil {
		return nil, err
	}
	events, err := t.process(def, t.State, def.AbortCommand(blamedSeat), rng)
	if err != nil {
		return nil, err
	}
	t.Status = StatusAborted
	return events, nil
}

func (t *Table) process(def game.Definition, state game.State, cmd game.Command, rng *rand.Rand) ([]game.Event, error) {
	updated, events, err := def.NewEngine().Process(state, cmd, rng)
	if err != nil {
		return nil, apperr.WithContext(err, "table_id", t.ID)
	}
	t.State = updated
	return events, nil
}

func (t *Table) finishIfEnded() {
	if t.State != nil && t.State.Ended() {
		t.Status = StatusFinished
	}
}
