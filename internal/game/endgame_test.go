// internal/game/endgame_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoline/chronoline/internal/models"
)

func TestTwoPlayerFinalRoundBothFinish(t *testing.T) {
	store, room, ms := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800), card(51, 1900)},
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
	)

	room.Mu.Lock()
	p0, p1 := room.Players[0], room.Players[1]

	// First seat empties its hand; the other still gets a last chance.
	_, err := room.AttemptPlacement(p0.ConnectionID, "client-0", 1, 1)
	require.NoError(t, err)
	require.NotNil(t, p0.FinishedPlace)
	assert.Equal(t, 1, *p0.FinishedPlace)
	assert.True(t, room.FinalRoundActive)
	assert.Equal(t, []string{"client-1"}, room.FinalRoundQueue)
	assert.False(t, room.Ended, "game must wait for the final round")
	require.Equal(t, 1, room.CurrentPlayerIndex)

	_, err = room.AttemptPlacement(p1.ConnectionID, "client-1", 2, 0)
	require.NoError(t, err)
	assert.True(t, room.Ended)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-0", EventGameOver)
	require.NotNil(t, ev)
	assert.Equal(t, []string{"client-0", "client-1"}, ev.Winners)
	require.Len(t, ev.Scoreboard, 2)

	assert.Equal(t, 0, store.RoomCount(), "resolved room is torn down")
	assert.Equal(t, 0, store.Timers().Len())
}

func TestFinalRoundClosingMoveDecidesByScore(t *testing.T) {
	store, room, ms := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800), card(51, 1900)},
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
	)

	room.Mu.Lock()
	p0, p1 := room.Players[0], room.Players[1]
	p0.Score = 4

	_, err := room.AttemptPlacement(p0.ConnectionID, "client-0", 1, 1)
	require.NoError(t, err)
	require.True(t, room.FinalRoundActive)

	// The trailing seat's final move is correct and empties its hand too,
	// but the final round still settles on score, not on finishing order.
	res, err := room.AttemptPlacement(p1.ConnectionID, "client-1", 2, 0)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Empty(t, p1.Hand)
	assert.True(t, room.Ended)
	assert.Equal(t, 5, p0.Score)
	assert.Equal(t, 1, p1.Score)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-1", EventGameOver)
	require.NotNil(t, ev)
	assert.Equal(t, []string{"client-0"}, ev.Winners, "score decides, not finishing order")
	assert.Equal(t, 0, store.RoomCount())
}

func TestTwoPlayerFinalRoundMissedChance(t *testing.T) {
	store, room, ms := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800), card(51, 1900)},
		[]models.Card{card(100, 1500), card(101, 1700)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
	)

	room.Mu.Lock()
	p0, p1 := room.Players[0], room.Players[1]

	_, err := room.AttemptPlacement(p0.ConnectionID, "client-0", 1, 1)
	require.NoError(t, err)
	require.True(t, room.FinalRoundActive)

	// The trailing seat botches its final move: it draws a replacement, so
	// the final round completes with cards still in hand.
	res, err := room.AttemptPlacement(p1.ConnectionID, "client-1", 2, 2)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.True(t, room.Ended)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-1", EventGameOver)
	require.NotNil(t, ev)
	assert.Equal(t, []string{"client-0"}, ev.Winners, "highest score wins the final round")
	assert.Equal(t, 0, store.RoomCount())
}

func TestDeckExhaustedLargeRoomTopThree(t *testing.T) {
	store, room, ms := setupTestRoom(t, 4, testOptions())

	startFixed(room,
		nil,
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400), card(3, 1300)},
		[]models.Card{card(4, 1200), card(5, 1100), card(6, 1000)},
		[]models.Card{card(7, 1900)},
	)
	room.Mu.Lock()
	room.Players[0].Score = 2
	room.Players[3].Score = 5
	room.evaluateEndgame()
	assert.True(t, room.Ended)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-2", EventGameOver)
	require.NotNil(t, ev)
	// Fewest cards first, score breaks the tie.
	assert.Equal(t, []string{"client-3", "client-0", "client-1"}, ev.Winners)
	assert.Equal(t, 0, store.RoomCount())
}

func TestDeckExhaustedSmallRoomHighestScore(t *testing.T) {
	_, room, ms := setupTestRoom(t, 3, testOptions())

	startFixed(room,
		nil,
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
		[]models.Card{card(3, 1200)},
	)
	room.Mu.Lock()
	room.Players[1].Score = 4
	room.evaluateEndgame()
	assert.True(t, room.Ended)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-0", EventGameOver)
	require.NotNil(t, ev)
	assert.Equal(t, []string{"client-1"}, ev.Winners)
}

func TestFinishedPlayersWinWhenOneSeatLeft(t *testing.T) {
	_, room, ms := setupTestRoom(t, 3, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800)},
		[]models.Card{card(100, 1500)},
		nil,
		nil,
		[]models.Card{card(3, 1200), card(4, 1300)},
	)
	room.Mu.Lock()
	one, two := 1, 2
	room.Players[0].FinishedPlace = &one
	room.Players[1].FinishedPlace = &two
	room.evaluateEndgame()
	assert.True(t, room.Ended)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-2", EventGameOver)
	require.NotNil(t, ev)
	assert.Equal(t, []string{"client-0", "client-1"}, ev.Winners)
}

func TestResolveIsIdempotent(t *testing.T) {
	_, room, ms := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		nil,
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
	)
	room.Mu.Lock()
	require.True(t, room.evaluateEndgame())
	require.True(t, room.evaluateEndgame(), "already-ended room reports true")
	room.resolve([]string{"client-0"})
	room.Mu.Unlock()

	assert.Equal(t, 1, ms.countType("client-0", EventGameOver), "game_over must fire exactly once")
}

func TestNoEndgameWhileDeckAndPlayersRemain(t *testing.T) {
	_, room, _ := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800)},
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
	)
	room.Mu.Lock()
	assert.False(t, room.evaluateEndgame())
	assert.False(t, room.Ended)
	room.Mu.Unlock()
}
