// internal/game/turn.go
package game

import (
	"log"
	"time"
)

// nextEligibleIndex scans cyclically from `from` for the first online seat
// that still holds cards. Returns -1 when no such seat exists. Assumes the
// room lock is held.
func (r *Room) nextEligibleIndex(from int) int {
	n := len(r.Players)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		p := r.Players[idx]
		if p.Online && len(p.Hand) > 0 {
			return idx
		}
	}
	return -1
}

// nextSeatWithCards is the fallback when every card-holding seat is offline:
// the turn still rotates so the timeout cadence keeps the game draining
// instead of spinning through instant skips.
func (r *Room) nextSeatWithCards(from int) int {
	n := len(r.Players)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if len(r.Players[idx].Hand) > 0 {
			return idx
		}
	}
	return -1
}

// armTurnTimer replaces the room's single turn timer with a fresh one for
// the current seat. The serial check makes a stale callback a no-op when the
// turn moved on before the timer fired. Assumes the room lock is held.
func (r *Room) armTurnTimer() {
	r.turnSerial++
	serial := r.turnSerial
	r.TurnDeadline = time.Now().Add(r.store.opts.TurnTimeout)
	r.store.timers.Schedule(turnKey(r.ID), r.store.opts.TurnTimeout, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		if r.Ended || serial != r.turnSerial {
			return
		}
		r.handleTurnExpiry()
	})
}

// handleTurnExpiry forfeits the current seat's turn after the placement
// window lapses. Assumes the room lock is held.
func (r *Room) handleTurnExpiry() {
	if !r.GameStarted || r.Ended {
		return
	}
	if r.CurrentPlayerIndex < 0 || r.CurrentPlayerIndex >= len(r.Players) {
		return
	}
	cur := r.Players[r.CurrentPlayerIndex]
	log.Printf("Room %s: turn timed out for %s", r.ID, cur.ClientID)
	r.recordAction(cur.ClientID, "turn_timeout", nil)

	if r.FinalRoundActive {
		// A queued seat that lets its last chance lapse forfeits it.
		r.FinalRoundMoved[cur.ClientID] = true
	}

	r.broadcast(Event{
		Type:    EventAutoSkip,
		RoomID:  r.ID,
		Message: cur.Name + "'s turn was skipped",
	})
	r.advanceTurn()
}

// advanceTurn moves the turn pointer to the next seat that may act, rearms
// the timer and broadcasts the new state. When nobody is left to act it
// resolves the game instead. Assumes the room lock is held.
func (r *Room) advanceTurn() {
	if r.Ended {
		return
	}

	if r.FinalRoundActive {
		if idx, ok := r.nextFinalRoundSeat(); ok {
			r.CurrentPlayerIndex = idx
			r.armTurnTimer()
			r.broadcastUpdate()
			return
		}
		r.evaluateEndgame()
		return
	}

	idx := r.nextEligibleIndex(r.CurrentPlayerIndex + 1)
	if idx < 0 {
		idx = r.nextSeatWithCards(r.CurrentPlayerIndex + 1)
	}
	if idx < 0 {
		r.evaluateEndgame()
		return
	}
	r.CurrentPlayerIndex = idx
	r.armTurnTimer()
	r.broadcastUpdate()
}

// nextFinalRoundSeat picks the first queued seat that still owes its final
// move. Absent or empty-handed or offline seats forfeit their slot so the
// round always terminates. Assumes the room lock is held.
func (r *Room) nextFinalRoundSeat() (int, bool) {
	for _, cid := range r.FinalRoundQueue {
		if r.FinalRoundMoved[cid] {
			continue
		}
		p := r.playerByClientID(cid)
		if p == nil || len(p.Hand) == 0 || !p.Online {
			r.FinalRoundMoved[cid] = true
			continue
		}
		return r.playerIndex(p), true
	}
	return -1, false
}
