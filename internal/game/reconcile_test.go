// internal/game/reconcile_test.go
package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoline/chronoline/internal/models"
)

func TestReconnectPreservesSeat(t *testing.T) {
	store, room, _ := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800)},
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600), card(2, 1300)},
		[]models.Card{card(3, 1400)},
	)
	room.Mu.Lock()
	p1 := room.Players[1]
	p1.Score = 3
	oldConn := p1.ConnectionID
	room.Mu.Unlock()

	store.HandleDisconnect(oldConn)
	room.Mu.Lock()
	assert.False(t, p1.Online)
	room.Mu.Unlock()

	newConn := uuid.New()
	room.Mu.Lock()
	res := store.ReconcileJoin(room, "client-1", newConn, "", nil)
	room.Mu.Unlock()

	assert.False(t, res.IsNew)
	assert.Same(t, p1, res.Player, "same seat, not a new one")
	room.Mu.Lock()
	assert.True(t, p1.Online)
	assert.Equal(t, newConn, p1.ConnectionID)
	assert.Equal(t, 3, p1.Score)
	assert.Len(t, p1.Hand, 1, "hand survives the reconnect")
	assert.Len(t, room.Players, 2)
	room.Mu.Unlock()

	got, ok := store.RoomForConnection(newConn)
	require.True(t, ok)
	assert.Equal(t, room.ID, got.ID)
}

func TestJoinUnknownClientAddsSeat(t *testing.T) {
	store, room, ms := setupTestRoom(t, 2, testOptions())

	room.Mu.Lock()
	res := store.ReconcileJoin(room, "client-9", uuid.New(), "newcomer", nil)
	room.Mu.Unlock()

	assert.True(t, res.IsNew)
	room.Mu.Lock()
	assert.Len(t, room.Players, 3)
	room.Mu.Unlock()

	ev := ms.lastOfType("client-0", EventLobbyUpdate)
	require.NotNil(t, ev)
	assert.Len(t, ev.Players, 3)
}

func TestReconnectByStaleConnectionID(t *testing.T) {
	store, room, _ := setupTestRoom(t, 2, testOptions())

	room.Mu.Lock()
	p1 := room.Players[1]
	staleID := p1.ConnectionID.String()
	// Client never stored a durable id and reuses its old connection id.
	res := store.ReconcileJoin(room, staleID, uuid.New(), "", nil)
	room.Mu.Unlock()

	assert.False(t, res.IsNew)
	assert.Same(t, p1, res.Player)
	assert.Equal(t, staleID, p1.ClientID)
}

func TestHostPromotionOnDisconnect(t *testing.T) {
	store, room, _ := setupTestRoom(t, 2, testOptions())

	room.Mu.Lock()
	hostConn := room.HostConnectionID
	p1Conn := room.Players[1].ConnectionID
	room.Mu.Unlock()

	store.HandleDisconnect(hostConn)

	room.Mu.Lock()
	assert.Equal(t, p1Conn, room.HostConnectionID)
	room.Mu.Unlock()
}

func TestHostReclaimedOnReconnect(t *testing.T) {
	store, room, _ := setupTestRoom(t, 1, testOptions())

	room.Mu.Lock()
	hostConn := room.HostConnectionID
	room.Mu.Unlock()

	// Sole player drops: nobody to promote, the stale id stays.
	store.HandleDisconnect(hostConn)

	newConn := uuid.New()
	room.Mu.Lock()
	store.ReconcileJoin(room, "client-0", newConn, "", nil)
	hostNow := room.HostConnectionID
	room.Mu.Unlock()

	assert.Equal(t, newConn, hostNow, "host slot follows the reconnect")
}

func TestGracePeriodRemovesOfflinePlayer(t *testing.T) {
	opts := testOptions()
	opts.GracePeriod = 40 * time.Millisecond
	store, room, _ := setupTestRoom(t, 3, opts)

	room.Mu.Lock()
	p2Conn := room.Players[2].ConnectionID
	room.Mu.Unlock()

	store.HandleDisconnect(p2Conn)
	time.Sleep(120 * time.Millisecond)

	room.Mu.Lock()
	assert.Len(t, room.Players, 2, "offline seat removed after grace")
	room.Mu.Unlock()
	assert.Equal(t, 1, store.RoomCount())
}

func TestReconnectOfCurrentTurnHolderSkipsTurn(t *testing.T) {
	store, room, ms := setupTestRoom(t, 2, testOptions())

	startFixed(room,
		[]models.Card{card(50, 1800)},
		[]models.Card{card(100, 1500)},
		[]models.Card{card(1, 1600), card(2, 1300)},
		[]models.Card{card(3, 1400)},
	)
	room.Mu.Lock()
	p0Conn := room.Players[0].ConnectionID
	room.Mu.Unlock()

	store.HandleDisconnect(p0Conn)
	ms.clear()

	room.Mu.Lock()
	store.ReconcileJoin(room, "client-0", uuid.New(), "", nil)
	assert.Equal(t, 1, room.CurrentPlayerIndex, "reconnecting turn-holder forfeits the turn")
	room.Mu.Unlock()

	assert.GreaterOrEqual(t, ms.countType("client-1", EventAutoSkip), 1)
}

func TestLeaveRoomRemovesSeatImmediately(t *testing.T) {
	store, room, _ := setupTestRoom(t, 2, testOptions())

	room.Mu.Lock()
	p1Conn := room.Players[1].ConnectionID
	require.NoError(t, store.LeaveRoom(room, p1Conn))
	assert.Len(t, room.Players, 1)
	room.Mu.Unlock()

	_, ok := store.RoomForConnection(p1Conn)
	assert.False(t, ok)
}

func TestLeaveLastPlayerDeletesRoom(t *testing.T) {
	store, room, _ := setupTestRoom(t, 1, testOptions())

	room.Mu.Lock()
	hostConn := room.Players[0].ConnectionID
	require.NoError(t, store.LeaveRoom(room, hostConn))
	room.Mu.Unlock()

	assert.Equal(t, 0, store.RoomCount())
}

func TestKickPlayer(t *testing.T) {
	store, room, ms := setupTestRoom(t, 3, testOptions())

	room.Mu.Lock()
	hostConn := room.HostConnectionID
	p1Conn := room.Players[1].ConnectionID

	// Non-host cannot kick.
	err := store.KickPlayer(room, p1Conn, room.Players[2].ConnectionID.String(), "")
	assert.ErrorIs(t, err, ErrNotHost)

	// Host cannot kick itself.
	err = store.KickPlayer(room, hostConn, hostConn.String(), "")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	require.NoError(t, store.KickPlayer(room, hostConn, p1Conn.String(), ""))
	assert.Len(t, room.Players, 2)
	room.Mu.Unlock()

	assert.Equal(t, 1, ms.countType("client-1", EventKicked))
	_, ok := store.RoomForConnection(p1Conn)
	assert.False(t, ok)
}

func TestKickByClientIDFallback(t *testing.T) {
	store, room, ms := setupTestRoom(t, 2, testOptions())

	room.Mu.Lock()
	require.NoError(t, store.KickPlayer(room, room.HostConnectionID, "", "client-1"))
	assert.Len(t, room.Players, 1)
	room.Mu.Unlock()

	assert.Equal(t, 1, ms.countType("client-1", EventKicked))
}
