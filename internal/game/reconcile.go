// internal/game/reconcile.go
package game

import (
	"log"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/chronoline/chronoline/internal/models"
)

// JoinResult is what ReconcileJoin resolves a join request to.
type JoinResult struct {
	Player *models.Player
	IsNew  bool
}

// ReconcileJoin resolves "who is making this request" by durable client id,
// rebinding the transport address on reconnect and keeping exactly one Player
// record per distinct client id. Assumes the room lock is held.
func (s *RoomStore) ReconcileJoin(room *Room, clientID string, connID uuid.UUID, name string, conn *websocket.Conn) JoinResult {
	s.cancelReap(room.ID)

	p := room.playerByClientID(clientID)
	if p == nil {
		// Back-compat: a client that never established a durable id sends
		// its previous connection id in the clientId slot.
		for _, cand := range room.Players {
			if cand.ConnectionID.String() == clientID {
				p = cand
				p.ClientID = clientID
				break
			}
		}
	}

	if p == nil {
		np := &models.Player{
			ConnectionID: connID,
			ClientID:     clientID,
			Name:         name,
			Hand:         []models.Card{},
			Online:       true,
			Conn:         conn,
		}
		room.Players = append(room.Players, np)
		s.bindConnection(connID, room.ID)
		room.recordAction(clientID, "player_join", map[string]interface{}{"name": name})
		if room.GameStarted {
			room.broadcastUpdate()
		} else {
			room.broadcastLobby()
		}
		return JoinResult{Player: np, IsNew: true}
	}

	// Reconnection: rebind the transport address atomically.
	oldConn := p.ConnectionID
	p.ConnectionID = connID
	p.Conn = conn
	p.Online = true
	if name != "" {
		p.Name = name
	}
	s.timers.Cancel(graceKey(room.ID, p.ClientID))
	s.bindConnection(connID, room.ID)
	if room.HostConnectionID == oldConn {
		// The host slot was still pointing at the stale address.
		room.HostConnectionID = connID
	}
	room.recordAction(clientID, "player_reconnect", nil)
	log.Printf("Room %s: client %s reconnected (conn %s -> %s)", room.ID, clientID, oldConn, connID)

	// A reconnecting current-turn player cannot have an action in flight on
	// the fresh connection, so their turn is forfeited immediately instead
	// of waiting for the timeout.
	if room.GameStarted && !room.Ended && room.currentClientID() == p.ClientID {
		skipped := p.Name
		room.advanceTurn()
		if !room.Ended {
			room.broadcast(Event{
				Type:    EventAutoSkip,
				RoomID:  room.ID,
				Message: skipped + "'s turn was skipped after reconnecting",
			})
		}
		return JoinResult{Player: p, IsNew: false}
	}

	if room.GameStarted {
		room.broadcastUpdate()
	} else {
		room.broadcastLobby()
	}
	return JoinResult{Player: p, IsNew: false}
}

// HandleDisconnect processes a transport-level disconnect. The player is
// soft-deleted (marked offline) so hand and score survive brief network
// blips; a grace timer removes them for good if they stay away.
func (s *RoomStore) HandleDisconnect(connID uuid.UUID) {
	room, ok := s.RoomForConnection(connID)
	s.unbindConnection(connID)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Ended {
		return
	}
	p := room.playerByConnectionID(connID)
	if p == nil || !p.Online {
		// Already rebound to a newer connection or already marked offline.
		return
	}
	p.Online = false
	p.Conn = nil
	log.Printf("Room %s: client %s disconnected", room.ID, p.ClientID)
	room.recordAction(p.ClientID, "player_disconnect", nil)

	if room.HostConnectionID == connID {
		// Promote the first online player if any; otherwise the stale id
		// silently becomes valid again when the host reconnects.
		if next := room.firstOnlinePlayer(); next != nil {
			room.HostConnectionID = next.ConnectionID
		}
	}

	s.schedulePlayerGrace(room, p.ClientID)
	if room.onlineCount() == 0 {
		s.scheduleReap(room)
	}

	if room.GameStarted {
		room.broadcastUpdate()
	} else {
		room.broadcastLobby()
	}
}

// schedulePlayerGrace arms the per-player deletion timer. On expiry the seat
// is removed if the player is still offline.
func (s *RoomStore) schedulePlayerGrace(room *Room, clientID string) {
	s.timers.Schedule(graceKey(room.ID, clientID), s.opts.GracePeriod, func() {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		if room.Ended {
			return
		}
		p := room.playerByClientID(clientID)
		if p == nil || p.Online {
			return
		}
		log.Printf("Room %s: removing client %s after grace period", room.ID, clientID)
		room.removePlayer(p)
		room.recordAction(clientID, "player_reaped", nil)
	})
}

// LeaveRoom removes the acting player immediately, with no grace period.
func (s *RoomStore) LeaveRoom(room *Room, connID uuid.UUID) error {
	p := room.playerByConnectionID(connID)
	if p == nil {
		return ErrPlayerNotFound
	}
	s.timers.Cancel(graceKey(room.ID, p.ClientID))
	s.unbindConnection(connID)
	room.recordAction(p.ClientID, "player_leave", nil)
	room.removePlayer(p)
	return nil
}

// KickPlayer removes a target seat. Host-only; the host cannot kick itself.
// The target is addressed by its current connection id, with the durable
// client id accepted as a fallback for a seat mid-reconnect.
func (s *RoomStore) KickPlayer(room *Room, actorConnID uuid.UUID, targetConnID, targetClientID string) error {
	if actorConnID != room.HostConnectionID {
		return ErrNotHost
	}

	var target *models.Player
	if targetConnID != "" {
		if id, err := uuid.Parse(targetConnID); err == nil {
			target = room.playerByConnectionID(id)
		}
	}
	if target == nil && targetClientID != "" {
		target = room.playerByClientID(targetClientID)
	}
	if target == nil {
		return ErrPlayerNotFound
	}
	if target.ConnectionID == actorConnID {
		return ErrPlayerNotFound
	}

	room.sendEvenIfOffline(target, Event{Type: EventKicked, RoomID: room.ID})
	s.timers.Cancel(graceKey(room.ID, target.ClientID))
	s.unbindConnection(target.ConnectionID)
	room.recordAction(target.ClientID, "player_kicked", nil)
	room.removePlayer(target)
	return nil
}

func (r *Room) firstOnlinePlayer() *models.Player {
	for _, p := range r.Players {
		if p.Online {
			return p
		}
	}
	return nil
}

// removePlayer drops a seat from the room, repairing the turn pointer, host
// slot and endgame state, and destroys the room when it goes empty. Assumes
// the room lock is held.
func (r *Room) removePlayer(p *models.Player) {
	idx := r.playerIndex(p)
	if idx < 0 {
		return
	}
	wasCurrent := r.GameStarted && idx == r.CurrentPlayerIndex
	wasHost := p.ConnectionID == r.HostConnectionID

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	delete(r.lastPlacement, p.ConnectionID)

	if len(r.Players) == 0 {
		r.store.DeleteRoom(r.ID)
		return
	}

	if idx < r.CurrentPlayerIndex {
		r.CurrentPlayerIndex--
	}
	if r.CurrentPlayerIndex >= len(r.Players) {
		r.CurrentPlayerIndex = 0
	}

	if wasHost {
		if next := r.firstOnlinePlayer(); next != nil {
			r.HostConnectionID = next.ConnectionID
		} else {
			r.HostConnectionID = r.Players[0].ConnectionID
		}
	}

	if r.GameStarted && !r.Ended {
		if r.evaluateEndgame() {
			return
		}
		if wasCurrent {
			// Hand the turn to the seat that inherited this index.
			r.CurrentPlayerIndex = (r.CurrentPlayerIndex - 1 + len(r.Players)) % len(r.Players)
			r.advanceTurn()
			return
		}
		r.broadcastUpdate()
	} else {
		r.broadcastLobby()
	}

	if r.onlineCount() == 0 && !r.Ended {
		r.store.scheduleReap(r)
	}
}
