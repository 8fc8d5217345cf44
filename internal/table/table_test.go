package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game/fivehundred"
	"github.com/gatismeikulis/card-game-app/internal/randutil"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	cfg, err := ParseConfig("five_hundred", nil, nil)
	require.NoError(t, err)
	return New("owner", cfg, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func seatThree(t *testing.T, tbl *Table) {
	t.Helper()
	rng := randutil.New(1)
	require.NoError(t, tbl.AddHumanPlayer("owner", "Alice", 1, rng))
	require.NoError(t, tbl.AddHumanPlayer("u2", "Bob", 2, rng))
	require.NoError(t, tbl.AddHumanPlayer("u3", "Cara", 3, rng))
}

func TestAddHumanPlayer(t *testing.T) {
	tbl := newTestTable(t)
	rng := randutil.New(1)

	require.NoError(t, tbl.AddHumanPlayer("owner", "Alice", 2, rng))
	player, seated := tbl.PlayerByUserID("owner")
	require.True(t, seated)
	assert.Equal(t, 2, player.SeatNumber)
	assert.Equal(t, "human-owner", player.ID)
	assert.False(t, player.IsBot())

	t.Run("duplicate user rejected", func(t *testing.T) {
		err := tbl.AddHumanPlayer("owner", "Alice", 3, rng)
		assert.Equal(t, "already_seated", apperr.ReasonOf(err))
	})

	t.Run("taken seat rejected", func(t *testing.T) {
		err := tbl.AddHumanPlayer("u2", "Bob", 2, rng)
		assert.Equal(t, "seat_taken", apperr.ReasonOf(err))
	})

	t.Run("random seat is a free one", func(t *testing.T) {
		require.NoError(t, tbl.AddHumanPlayer("u2", "Bob", 0, rng))
		player, _ := tbl.PlayerByUserID("u2")
		assert.Contains(t, []int{1, 3}, player.SeatNumber)
	})

	t.Run("full table rejected", func(t *testing.T) {
		require.NoError(t, tbl.AddHumanPlayer("u3", "Cara", 0, rng))
		err := tbl.AddHumanPlayer("u4", "Dan", 0, rng)
		assert.Equal(t, "table_full", apperr.ReasonOf(err))
	})
}

func TestBotPlayers(t *testing.T) {
	tbl := newTestTable(t)
	rng := randutil.New(2)

	t.Run("only owner may add", func(t *testing.T) {
		err := tbl.AddBotPlayer(fivehundred.BotKindRandom, "someone", 0, rng)
		assert.Equal(t, "not_owner", apperr.ReasonOf(err))
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		err := tbl.AddBotPlayer("grandmaster", "owner", 0, rng)
		assert.Equal(t, "unknown_bot_kind", apperr.ReasonOf(err))
	})

	require.NoError(t, tbl.AddBotPlayer(fivehundred.BotKindRandom, "owner", 2, rng))
	bot, seated := tbl.PlayerBySeat(2)
	require.True(t, seated)
	assert.True(t, bot.IsBot())
	assert.Empty(t, bot.UserID)

	t.Run("bots disallowed by settings", func(t *testing.T) {
		other := newTestTable(t)
		other.Config.Settings.BotsAllowed = false
		err := other.AddBotPlayer(fivehundred.BotKindRandom, "owner", 0, rng)
		assert.Equal(t, "bots_not_allowed", apperr.ReasonOf(err))
	})

	t.Run("remove requires a bot on the seat", func(t *testing.T) {
		err := tbl.RemoveBotPlayer(3, "owner")
		assert.Equal(t, "not_a_bot", apperr.ReasonOf(err))
	})

	require.NoError(t, tbl.RemoveBotPlayer(2, "owner"))
	_, seated = tbl.PlayerBySeat(2)
	assert.False(t, seated)
}

func TestStartGame(t *testing.T) {
	tbl := newTestTable(t)
	seatThree(t, tbl)
	rng := randutil.New(3)

	t.Run("owner only", func(t *testing.T) {
		_, err := tbl.StartGame("u2", rng)
		assert.Equal(t, "not_owner", apperr.ReasonOf(err))
	})

	events, err := tbl.StartGame("owner", rng)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "deck_shuffled", events[0].EventType())
	assert.Equal(t, StatusInProgress, tbl.Status)
	require.NotNil(t, tbl.State)
	assert.Equal(t, 1, tbl.State.ActiveSeatNumber())

	t.Run("cannot start twice", func(t *testing.T) {
		_, err := tbl.StartGame("owner", rng)
		assert.Equal(t, "wrong_table_status", apperr.ReasonOf(err))
	})
}

func TestStartGameNeedsEnoughPlayers(t *testing.T) {
	tbl := newTestTable(t)
	rng := randutil.New(4)
	require.NoError(t, tbl.AddHumanPlayer("owner", "Alice", 1, rng))

	_, err := tbl.StartGame("owner", rng)
	assert.Equal(t, "not_enough_players", apperr.ReasonOf(err))
}

func TestTakeRegularTurn(t *testing.T) {
	tbl := newTestTable(t)
	seatThree(t, tbl)
	rng := randutil.New(5)
	_, err := tbl.StartGame("owner", rng)
	require.NoError(t, err)

	t.Run("off-turn player rejected", func(t *testing.T) {
		_, err := tbl.TakeRegularTurn("u2", fivehundred.MakeBidCommand{Bid: -1}, rng)
		assert.Equal(t, "not_your_turn", apperr.ReasonOf(err))
	})

	t.Run("stranger rejected", func(t *testing.T) {
		_, err := tbl.TakeRegularTurn("stranger", fivehundred.MakeBidCommand{Bid: -1}, rng)
		assert.Equal(t, "not_seated", apperr.ReasonOf(err))
	})

	events, err := tbl.TakeRegularTurn("owner", fivehundred.MakeBidCommand{Bid: -1}, rng)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, tbl.State.ActiveSeatNumber())
}

func TestTakeAutomaticTurn(t *testing.T) {
	tbl := newTestTable(t)
	rng := randutil.New(6)
	require.NoError(t, tbl.AddHumanPlayer("owner", "Alice", 1, rng))
	require.NoError(t, tbl.AddBotPlayer(fivehundred.BotKindRandom, "owner", 2, rng))
	require.NoError(t, tbl.AddHumanPlayer("u3", "Cara", 3, rng))
	_, err := tbl.StartGame("owner", rng)
	require.NoError(t, err)

	t.Run("human on active seat rejected", func(t *testing.T) {
		// seat 1 is human
		_, err := tbl.TakeAutomaticTurn("owner", rng)
		assert.Equal(t, "active_seat_not_bot", apperr.ReasonOf(err))
	})

	_, err = tbl.TakeRegularTurn("owner", fivehundred.MakeBidCommand{Bid: -1}, rng)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.State.ActiveSeatNumber())

	t.Run("any seated player may trigger", func(t *testing.T) {
		events, err := tbl.TakeAutomaticTurn("u3", rng)
		require.NoError(t, err)
		assert.NotEmpty(t, events)
	})

	t.Run("stranger may not", func(t *testing.T) {
		_, err := tbl.TakeAutomaticTurn("stranger", rng)
		assert.Equal(t, "not_seated", apperr.ReasonOf(err))
	})
}

func TestCancelGame(t *testing.T) {
	rng := randutil.New(7)

	t.Run("before start", func(t *testing.T) {
		tbl := newTestTable(t)
		events, err := tbl.CancelGame("owner", rng)
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Equal(t, StatusCancelled, tbl.Status)
	})

	t.Run("in progress", func(t *testing.T) {
		tbl := newTestTable(t)
		seatThree(t, tbl)
		_, err := tbl.StartGame("owner", rng)
		require.NoError(t, err)

		events, err := tbl.CancelGame("owner", rng)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "game_ended", events[0].EventType())
		assert.Equal(t, StatusCancelled, tbl.Status)
		assert.True(t, tbl.State.Ended())
	})
}

func TestAbortGame(t *testing.T) {
	tbl := newTestTable(t)
	seatThree(t, tbl)
	rng := randutil.New(8)
	_, err := tbl.StartGame("owner", rng)
	require.NoError(t, err)

	events, err := tbl.AbortGame("owner", 2, rng)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, StatusAborted, tbl.Status)

	ended := events[0].(fivehundred.GameEndedEvent)
	require.NotNil(t, ended.BlamedSeat)
	assert.Equal(t, fivehundred.Seat(2), *ended.BlamedSeat)
}

func TestTableMarshalRoundTrip(t *testing.T) {
	tbl := newTestTable(t)
	seatThree(t, tbl)
	rng := randutil.New(9)
	_, err := tbl.StartGame("owner", rng)
	require.NoError(t, err)

	data, err := tbl.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, tbl.ID, restored.ID)
	assert.Equal(t, tbl.OwnerID, restored.OwnerID)
	assert.Equal(t, tbl.Status, restored.Status)
	assert.Equal(t, tbl.Players, restored.Players)
	assert.Equal(t, tbl.Config, restored.Config)
	require.NotNil(t, restored.State)
	assert.Equal(t, tbl.State, restored.State)
	assert.True(t, tbl.CreatedAt.Equal(restored.CreatedAt))
}

func TestPublicViewHidesOtherHands(t *testing.T) {
	tbl := newTestTable(t)
	seatThree(t, tbl)
	rng := randutil.New(10)
	_, err := tbl.StartGame("owner", rng)
	require.NoError(t, err)

	view := tbl.PublicView("owner")
	state := view["game_state"].(map[string]any)
	round := state["round"].(map[string]any)
	infos := round["seat_infos"].(map[string]any)

	own := infos["1"].(map[string]any)
	cards, ok := own["hand"].([]string)
	require.True(t, ok, "own hand must list cards")
	assert.Len(t, cards, fivehundred.CardsInStartingHand)

	other := infos["2"].(map[string]any)
	count, ok := other["hand"].(int)
	require.True(t, ok, "other hands must be a count")
	assert.Equal(t, fivehundred.CardsInStartingHand, count)
	assert.Nil(t, other["points"])

	assert.Equal(t, true, state["is_my_turn"])

	spectator := tbl.PublicView("nobody")
	spectatorState := spectator["game_state"].(map[string]any)
	assert.Equal(t, false, spectatorState["is_my_turn"])
}
