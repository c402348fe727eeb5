// internal/game/room_store.go
package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/chronoline/chronoline/internal/models"
)

// Options tunes room behavior. Zero values fall back to production defaults.
type Options struct {
	TurnTimeout     time.Duration // per-turn countdown before auto-skip
	GracePeriod     time.Duration // offline player / empty room retention
	HandSize        int           // cards dealt at game start
	PlacementWindow time.Duration // min interval between accepted placements per connection
}

func (o Options) withDefaults() Options {
	if o.TurnTimeout == 0 {
		o.TurnTimeout = 30 * time.Second
	}
	if o.GracePeriod == 0 {
		o.GracePeriod = 120 * time.Second
	}
	if o.HandSize == 0 {
		o.HandSize = 5
	}
	if o.PlacementWindow == 0 {
		o.PlacementWindow = time.Second
	}
	return o
}

// RoomStore manages all ephemeral rooms in memory. It owns every timer keyed
// to a room (turn countdown, per-player grace, room reaping) so that deleting
// a room transitively cancels all of them.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
	conns map[uuid.UUID]string // connection id -> room id

	cards  []models.Card
	timers *TimerTable
	opts   Options
}

// NewRoomStore returns an in-memory store seeding decks from the given
// catalog cards.
func NewRoomStore(cards []models.Card, opts Options) *RoomStore {
	return &RoomStore{
		rooms:  make(map[string]*Room),
		conns:  make(map[uuid.UUID]string),
		cards:  cards,
		timers: NewTimerTable(),
		opts:   opts.withDefaults(),
	}
}

// Timer keys. Everything belonging to one room shares the "<kind>:<roomID>"
// shape so CancelPrefix can sweep a whole room.
func turnKey(roomID string) string { return "turn:" + roomID }
func reapKey(roomID string) string { return "reap:" + roomID }
func graceKey(roomID, clientID string) string {
	return "grace:" + roomID + ":" + clientID
}

const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateRoomID produces a short join code. Assumes s.mu is held.
func (s *RoomStore) generateRoomID(rng *rand.Rand) string {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = roomIDAlphabet[rng.Intn(len(roomIDAlphabet))]
		}
		id := string(b)
		if _, exists := s.rooms[id]; !exists {
			return id
		}
	}
}

// newDeck returns a freshly shuffled copy of the full catalog.
func (s *RoomStore) newDeck() []models.Card {
	deck := make([]models.Card, len(s.cards))
	copy(deck, s.cards)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// CreateRoom builds a room with the host as its only player. desiredID may be
// empty, in which case a random join code is generated.
func (s *RoomStore) CreateRoom(desiredID, hostClientID, hostName string, connID uuid.UUID, conn *websocket.Conn) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := desiredID
	if id == "" {
		id = s.generateRoomID(rand.New(rand.NewSource(time.Now().UnixNano())))
	} else if _, exists := s.rooms[id]; exists {
		return nil, ErrRoomAlreadyExists
	}

	room := newRoom(id, s)
	room.Deck = s.newDeck()
	host := &models.Player{
		ConnectionID: connID,
		ClientID:     hostClientID,
		Name:         hostName,
		Hand:         []models.Card{},
		Online:       true,
		Conn:         conn,
	}
	room.Players = append(room.Players, host)
	room.HostConnectionID = connID

	s.rooms[id] = room
	s.conns[connID] = id
	log.Printf("Room %s created by client %s", id, hostClientID)
	return room, nil
}

// FindRoom retrieves a room by join code.
func (s *RoomStore) FindRoom(id string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomForConnection resolves the room a connection is currently bound to.
func (s *RoomStore) RoomForConnection(connID uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.conns[connID]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[id]
	return room, ok
}

// RoomCount returns the number of live rooms.
func (s *RoomStore) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Timers exposes the store's timer table.
func (s *RoomStore) Timers() *TimerTable { return s.timers }

// bindConnection records connID as belonging to roomID.
func (s *RoomStore) bindConnection(connID uuid.UUID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = roomID
}

// unbindConnection drops the connection->room mapping.
func (s *RoomStore) unbindConnection(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}

// DeleteRoom removes the room and cancels every timer keyed to it. Safe to
// call repeatedly and from inside room-locked code paths.
func (s *RoomStore) DeleteRoom(id string) {
	s.mu.Lock()
	room, ok := s.rooms[id]
	if ok {
		delete(s.rooms, id)
		for connID, roomID := range s.conns {
			if roomID == id {
				delete(s.conns, connID)
			}
		}
	}
	s.mu.Unlock()

	s.timers.Cancel(turnKey(id))
	s.timers.Cancel(reapKey(id))
	s.timers.CancelPrefix("grace:" + id + ":")
	if ok {
		log.Printf("Room %s deleted (%d players)", id, len(room.Players))
	}
}

// scheduleReap arms the room deletion grace timer. On expiry the room is
// destroyed unless someone reconnected in the meantime.
func (s *RoomStore) scheduleReap(room *Room) {
	id := room.ID
	s.timers.Schedule(reapKey(id), s.opts.GracePeriod, func() {
		room.Mu.Lock()
		stillEmpty := room.onlineCount() == 0
		room.Mu.Unlock()
		if !stillEmpty {
			return
		}
		log.Printf("Room %s: reaping after grace period with no online players", id)
		s.DeleteRoom(id)
	})
}

// cancelReap aborts a pending room deletion, typically on reconnect.
func (s *RoomStore) cancelReap(roomID string) {
	s.timers.Cancel(reapKey(roomID))
}
