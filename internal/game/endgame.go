// internal/game/endgame.go
package game

import (
	"log"
	"sort"

	"github.com/chronoline/chronoline/internal/models"
)

// activateFinalRound starts the last-chance round for a small room: every
// other seat still holding cards gets exactly one more move, in turn order
// after the finisher. Assumes the room lock is held.
func (r *Room) activateFinalRound(finisher *models.Player) {
	r.FinalRoundActive = true
	r.FinalRoundMoved = make(map[string]bool)
	r.FinalRoundQueue = r.FinalRoundQueue[:0]

	n := len(r.Players)
	start := r.playerIndex(finisher)
	for i := 1; i <= n; i++ {
		p := r.Players[(start+i)%n]
		if p == finisher || len(p.Hand) == 0 {
			continue
		}
		r.FinalRoundQueue = append(r.FinalRoundQueue, p.ClientID)
	}
	log.Printf("Room %s: final round started, %d seats queued", r.ID, len(r.FinalRoundQueue))
	r.recordAction(finisher.ClientID, "final_round_start", map[string]interface{}{
		"queued": len(r.FinalRoundQueue),
	})
}

// finalRoundComplete reports whether every queued seat has used or forfeited
// its final move. Seats that left the room or emptied their hand count as
// done. Assumes the room lock is held.
func (r *Room) finalRoundComplete() bool {
	for _, cid := range r.FinalRoundQueue {
		if r.FinalRoundMoved[cid] {
			continue
		}
		p := r.playerByClientID(cid)
		if p == nil || len(p.Hand) == 0 {
			continue
		}
		return false
	}
	return true
}

// evaluateEndgame checks every game-over condition and resolves the room
// when one holds. Returns true when the game is (or already was) over.
// Assumes the room lock is held.
func (r *Room) evaluateEndgame() bool {
	if r.Ended {
		return true
	}
	if !r.GameStarted {
		return false
	}

	// The final round owns termination for small rooms: it decides by score
	// comparison even when the closing move empties the last hand, and even
	// with the deck empty, queued seats keep their last chance.
	if r.FinalRoundActive {
		if r.finalRoundComplete() {
			r.resolve(r.maxScoreSet())
			return true
		}
		return false
	}

	if r.playersWithCards() == 0 {
		r.resolve(r.finishedClientIDs())
		return true
	}

	if len(r.Deck) == 0 {
		if len(r.Players) > 3 {
			r.resolve(r.topThree())
		} else {
			r.resolve(r.maxScoreSet())
		}
		return true
	}

	if r.playersWithCards() == 1 && r.finishedCount() > 0 {
		r.resolve(r.finishedClientIDs())
		return true
	}

	return false
}

// resolve ends the game exactly once: emits game_over to everyone and tears
// the room down. Assumes the room lock is held.
func (r *Room) resolve(winners []string) {
	if r.Ended {
		return
	}
	r.Ended = true
	log.Printf("Room %s: game over, winners=%v", r.ID, winners)

	r.broadcast(Event{
		Type:       EventGameOver,
		RoomID:     r.ID,
		Winners:    winners,
		Scoreboard: r.scoreboard(),
	})
	r.recordAction("", "game_over", map[string]interface{}{"winners": winners})
	r.store.DeleteRoom(r.ID)
}

// finishedClientIDs lists players that emptied their hand, in finishing
// order.
func (r *Room) finishedClientIDs() []string {
	type entry struct {
		cid   string
		place int
	}
	var done []entry
	for _, p := range r.Players {
		if p.FinishedPlace != nil {
			done = append(done, entry{p.ClientID, *p.FinishedPlace})
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].place < done[j].place })
	out := make([]string, len(done))
	for i, e := range done {
		out[i] = e.cid
	}
	return out
}

// maxScoreSet is every player tied for the highest score.
func (r *Room) maxScoreSet() []string {
	best := -1
	for _, p := range r.Players {
		if p.Score > best {
			best = p.Score
		}
	}
	var out []string
	for _, p := range r.Players {
		if p.Score == best {
			out = append(out, p.ClientID)
		}
	}
	return out
}

// topThree ranks seats by fewest cards left, then highest score, and takes
// the first three. Used when the deck runs dry in a large room.
func (r *Room) topThree() []string {
	ranked := make([]*models.Player, len(r.Players))
	copy(ranked, r.Players)
	sort.SliceStable(ranked, func(i, j int) bool {
		if len(ranked[i].Hand) != len(ranked[j].Hand) {
			return len(ranked[i].Hand) < len(ranked[j].Hand)
		}
		return ranked[i].Score > ranked[j].Score
	})
	var out []string
	for i, p := range ranked {
		if i == 3 {
			break
		}
		out = append(out, p.ClientID)
	}
	return out
}

func (r *Room) scoreboard() []ScoreRow {
	rows := make([]ScoreRow, 0, len(r.Players))
	for _, p := range r.Players {
		rows = append(rows, ScoreRow{
			ClientID: p.ClientID,
			Name:     p.Name,
			Score:    p.Score,
			HandSize: len(p.Hand),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}
