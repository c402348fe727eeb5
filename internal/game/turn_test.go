// internal/game/turn_test.go
package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoline/chronoline/internal/models"
)

func TestTurnExpiresToNextPlayer(t *testing.T) {
	opts := testOptions()
	opts.TurnTimeout = 50 * time.Millisecond
	_, room, ms := setupTestRoom(t, 3, opts)

	startFixed(room,
		[]models.Card{card(50, 1800)},
		nil,
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
		[]models.Card{card(3, 1200)},
	)

	time.Sleep(75 * time.Millisecond)

	room.Mu.Lock()
	assert.Equal(t, 1, room.CurrentPlayerIndex)
	room.Mu.Unlock()

	assert.GreaterOrEqual(t, ms.countType("client-0", EventAutoSkip), 1)
}

func TestTurnSkipsOfflinePlayers(t *testing.T) {
	opts := testOptions()
	opts.TurnTimeout = 50 * time.Millisecond
	_, room, _ := setupTestRoom(t, 3, opts)

	startFixed(room,
		[]models.Card{card(50, 1800)},
		nil,
		[]models.Card{card(1, 1600)},
		[]models.Card{card(2, 1400)},
		[]models.Card{card(3, 1200)},
	)
	room.Mu.Lock()
	room.Players[1].Online = false
	room.Mu.Unlock()

	time.Sleep(75 * time.Millisecond)

	room.Mu.Lock()
	assert.Equal(t, 2, room.CurrentPlayerIndex, "offline seat must be skipped")
	room.Mu.Unlock()
}

func TestTurnSkipsFinishedPlayers(t *testing.T) {
	_, room, _ := setupTestRoom(t, 3, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800)},
		nil,
		[]models.Card{card(1, 1600)},
		nil, // player 1 already played out their hand
		[]models.Card{card(3, 1200)},
	)

	room.Mu.Lock()
	room.advanceTurn()
	assert.Equal(t, 2, room.CurrentPlayerIndex, "empty-handed seat must be skipped")
	room.Mu.Unlock()
}

func TestSingleTurnTimerPerRoom(t *testing.T) {
	store, room, _ := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800)},
		nil,
		[]models.Card{card(1, 1600), card(2, 1650)},
		[]models.Card{card(3, 1400), card(4, 1450)},
	)

	// Several advances in a row still leave exactly one live turn timer.
	room.Mu.Lock()
	room.advanceTurn()
	room.advanceTurn()
	room.advanceTurn()
	room.Mu.Unlock()

	require.True(t, store.Timers().Live(turnKey(room.ID)))
	assert.Equal(t, 1, store.Timers().Len())
}

func TestStaleTimerCallbackIsNoop(t *testing.T) {
	opts := testOptions()
	opts.TurnTimeout = 50 * time.Millisecond
	_, room, ms := setupTestRoom(t, 2, opts)

	startFixed(room,
		[]models.Card{card(50, 1800)},
		nil,
		[]models.Card{card(1, 1600), card(2, 1650)},
		[]models.Card{card(3, 1400), card(4, 1450)},
	)

	// Advance just before the first timer would have fired; the old
	// callback must not skip the new turn-holder on top of that.
	time.Sleep(20 * time.Millisecond)
	room.Mu.Lock()
	room.advanceTurn()
	room.Mu.Unlock()
	ms.clear()

	time.Sleep(20 * time.Millisecond)
	room.Mu.Lock()
	idx := room.CurrentPlayerIndex
	room.Mu.Unlock()
	assert.Equal(t, 1, idx, "fresh turn must survive the original deadline")
	assert.Equal(t, 0, ms.countType("client-1", EventAutoSkip))
}
