// internal/game/room.go
package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chronoline/chronoline/internal/history"
	"github.com/chronoline/chronoline/internal/models"
)

// Room holds the entire state for a single game instance in memory. All
// mutation happens under Mu; methods below assume the lock is held unless
// stated otherwise.
type Room struct {
	ID      string
	Players []*models.Player
	Deck    []models.Card // draw from the front
	Table   []models.Card // sorted by year, unique by card id

	CurrentPlayerIndex int
	GameStarted        bool
	HostConnectionID   uuid.UUID
	TurnDeadline       time.Time

	// Final-round bookkeeping (small-room endgame).
	FinalRoundActive bool
	FinalRoundQueue  []string // client ids, in turn order after the finisher
	FinalRoundMoved  map[string]bool

	// Ended flips exactly once, when game_over has been emitted; every
	// room-destroying path checks it so teardown stays idempotent.
	Ended bool

	Mu sync.Mutex

	// SendFn delivers an event to a single player. If nil, no delivery is
	// done. Assigned by the transport layer; tests inject a collector.
	SendFn func(p *models.Player, ev Event)

	store         *RoomStore
	turnSerial    int // increments each turn; stale timer callbacks bail on mismatch
	busy          bool
	lastPlacement map[uuid.UUID]time.Time
	actionIndex   int
}

func newRoom(id string, store *RoomStore) *Room {
	return &Room{
		ID:              id,
		Deck:            []models.Card{},
		Table:           []models.Card{},
		FinalRoundMoved: make(map[string]bool),
		lastPlacement:   make(map[uuid.UUID]time.Time),
		store:           store,
	}
}

// send delivers ev to one player if they are reachable.
func (r *Room) send(p *models.Player, ev Event) {
	if r.SendFn == nil || p == nil || !p.Online {
		return
	}
	r.SendFn(p, ev)
}

// sendEvenIfOffline is used for terminal notices like kicked, where the
// target has just been unlinked from the room but the socket is still up.
func (r *Room) sendEvenIfOffline(p *models.Player, ev Event) {
	if r.SendFn == nil || p == nil {
		return
	}
	r.SendFn(p, ev)
}

// broadcast sends ev to every online room member.
func (r *Room) broadcast(ev Event) {
	for _, p := range r.Players {
		r.send(p, ev)
	}
}

// broadcastLobby pushes the lobby roster to everyone.
func (r *Room) broadcastLobby() {
	r.broadcast(Event{
		Type:        EventLobbyUpdate,
		RoomID:      r.ID,
		Players:     r.playerSummaries(),
		GameStarted: r.GameStarted,
	})
}

// PushState broadcasts the room snapshot appropriate to its phase. Assumes
// the room lock is held.
func (r *Room) PushState() {
	if r.GameStarted {
		r.broadcastUpdate()
	} else {
		r.broadcastLobby()
	}
}

// broadcastUpdate pushes the in-game state to everyone. Each player receives
// their own hand privately; other hands only ever travel as sizes.
func (r *Room) broadcastUpdate() {
	summaries := r.playerSummaries()
	currentID := r.currentClientID()
	for _, p := range r.Players {
		r.send(p, Event{
			Type:            EventUpdate,
			RoomID:          r.ID,
			Table:           r.tableCopy(),
			DeckSize:        len(r.Deck),
			Hand:            handCopy(p.Hand),
			Players:         summaries,
			CurrentPlayerID: currentID,
			TurnDeadline:    r.TurnDeadline.UnixMilli(),
		})
	}
}

func (r *Room) playerSummaries() []PlayerSummary {
	out := make([]PlayerSummary, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, PlayerSummary{
			ClientID:      p.ClientID,
			Name:          p.Name,
			Score:         p.Score,
			HandSize:      len(p.Hand),
			Online:        p.Online,
			IsHost:        p.ConnectionID == r.HostConnectionID,
			FinishedPlace: p.FinishedPlace,
		})
	}
	return out
}

func (r *Room) tableCopy() []models.Card {
	out := make([]models.Card, len(r.Table))
	copy(out, r.Table)
	return out
}

func handCopy(hand []models.Card) []models.Card {
	out := make([]models.Card, len(hand))
	copy(out, hand)
	return out
}

// currentClientID returns the current player's client id, or "" when no turn
// is live.
func (r *Room) currentClientID() string {
	if !r.GameStarted || r.Ended {
		return ""
	}
	if r.CurrentPlayerIndex < 0 || r.CurrentPlayerIndex >= len(r.Players) {
		return ""
	}
	return r.Players[r.CurrentPlayerIndex].ClientID
}

func (r *Room) playerByClientID(clientID string) *models.Player {
	for _, p := range r.Players {
		if p.ClientID == clientID {
			return p
		}
	}
	return nil
}

func (r *Room) playerByConnectionID(connID uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) playerIndex(p *models.Player) int {
	for i, pl := range r.Players {
		if pl == p {
			return i
		}
	}
	return -1
}

func (r *Room) onlineCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Online {
			n++
		}
	}
	return n
}

func (r *Room) playersWithCards() int {
	n := 0
	for _, p := range r.Players {
		if len(p.Hand) > 0 {
			n++
		}
	}
	return n
}

func (r *Room) finishedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.FinishedPlace != nil {
			n++
		}
	}
	return n
}

// drawCard pops the top deck card into the given hand. Reports whether a card
// was available.
func (r *Room) drawCard(p *models.Player) bool {
	if len(r.Deck) == 0 {
		return false
	}
	card := r.Deck[0]
	r.Deck = r.Deck[1:]
	p.Hand = append(p.Hand, card)
	return true
}

// StartGame deals hands, picks the first turn-holder and arms the first turn
// timer. Host-only; requires 2-15 players and a not-yet-started room.
func (r *Room) StartGame(connID uuid.UUID) error {
	if r.Ended {
		return ErrRoomNotFound
	}
	if connID != r.HostConnectionID {
		return ErrNotHost
	}
	if r.GameStarted {
		return ErrGameAlreadyStarted
	}
	if len(r.Players) < 2 || len(r.Players) > 15 {
		return ErrInvalidPlayerCount
	}

	handSize := r.store.opts.HandSize
	for _, p := range r.Players {
		p.Hand = make([]models.Card, 0, handSize)
		for i := 0; i < handSize; i++ {
			if !r.drawCard(p) {
				log.Printf("Room %s: deck exhausted during initial deal", r.ID)
				break
			}
		}
	}

	r.GameStarted = true
	idx := r.nextEligibleIndex(0)
	if idx < 0 {
		idx = 0
	}
	r.CurrentPlayerIndex = idx
	r.armTurnTimer()

	summaries := r.playerSummaries()
	currentID := r.currentClientID()
	for _, p := range r.Players {
		r.send(p, Event{
			Type:            EventGameStarted,
			RoomID:          r.ID,
			Hand:            handCopy(p.Hand),
			Players:         summaries,
			DeckSize:        len(r.Deck),
			CurrentPlayerID: currentID,
			TurnDeadline:    r.TurnDeadline.UnixMilli(),
		})
	}
	r.recordAction("", "game_start", map[string]interface{}{
		"players": len(r.Players), "deckSize": len(r.Deck),
	})
	log.Printf("Room %s: game started with %d players", r.ID, len(r.Players))
	return nil
}

// ChangeName renames the acting player. Lobby only.
func (r *Room) ChangeName(connID uuid.UUID, newName string) error {
	if r.GameStarted {
		return ErrGameAlreadyStarted
	}
	p := r.playerByConnectionID(connID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Name = newName
	r.broadcastLobby()
	return nil
}

// recordAction pushes an action record onto the history feed, asynchronously
// and best-effort. Never blocks room logic.
func (r *Room) recordAction(actorClientID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := history.ActionRecord{
		RoomID:        r.ID,
		ActionIndex:   r.actionIndex,
		ActorClientID: actorClientID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec history.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := history.Publish(ctx, rec); err != nil {
			log.Printf("Error publishing action %d for room %s: %v", rec.ActionIndex, rec.RoomID, err)
		}
	}(record)
}
