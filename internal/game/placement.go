// internal/game/placement.go
package game

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chronoline/chronoline/internal/models"
)

// PlacementResult describes what happened to a placed card.
type PlacementResult struct {
	Correct bool
	Card    models.Card
	Index   int // final index on the table after any correction
}

// AttemptPlacement plays a card from the acting player's hand onto the
// table. Wrong placements are not rejected: the card moves to its true
// chronological slot and the player draws a replacement. Assumes the room
// lock is held.
func (r *Room) AttemptPlacement(connID uuid.UUID, clientID string, cardID, insertIndex int) (*PlacementResult, error) {
	if !r.GameStarted || r.Ended {
		return nil, ErrGameNotStarted
	}

	// Resolve the actor by durable id first so a request racing its own
	// reconnect still lands; fall back to the connection id.
	var p *models.Player
	if clientID != "" {
		p = r.playerByClientID(clientID)
	}
	if p == nil {
		p = r.playerByConnectionID(connID)
	}
	if p == nil {
		return nil, ErrNotYourTurn
	}
	if p.ConnectionID != connID {
		// Stale record from before the reconnect; adopt the live address.
		p.ConnectionID = connID
	}
	if r.playerIndex(p) != r.CurrentPlayerIndex {
		return nil, ErrNotYourTurn
	}

	if last, ok := r.lastPlacement[connID]; ok && time.Since(last) < r.store.opts.PlacementWindow {
		return nil, ErrThrottled
	}
	// The room mutex already serializes placements; busy is an invariant
	// assertion that the deferred release runs on every exit path, so a
	// placement can never wedge the room.
	if r.busy {
		return nil, ErrBusy
	}
	r.busy = true
	defer func() { r.busy = false }()

	if p.FinishedPlace != nil {
		return nil, ErrAlreadyFinished
	}
	if !p.HoldsCard(cardID) {
		return nil, ErrNoSuchCard
	}
	for _, c := range r.Table {
		if c.ID == cardID {
			return nil, ErrCardOnTable
		}
	}

	card := removeFromHand(p, cardID)

	if insertIndex < 0 {
		insertIndex = 0
	}
	if insertIndex > len(r.Table) {
		insertIndex = len(r.Table)
	}

	leftYear := math.MinInt
	if insertIndex > 0 {
		leftYear = r.Table[insertIndex-1].Year
	}
	rightYear := math.MaxInt
	if insertIndex < len(r.Table) {
		rightYear = r.Table[insertIndex].Year
	}

	res := &PlacementResult{Card: card}
	if leftYear < card.Year && card.Year < rightYear {
		res.Correct = true
		res.Index = insertIndex
		r.Table = insertAt(r.Table, insertIndex, card)
		p.Score++
	} else {
		res.Index = sortedIndex(r.Table, card.Year)
		r.Table = insertAt(r.Table, res.Index, card)
		r.drawCard(p)
	}
	r.dedupeTable()
	r.lastPlacement[connID] = time.Now()

	r.recordAction(p.ClientID, "play_card", map[string]interface{}{
		"cardId":  card.ID,
		"index":   res.Index,
		"correct": res.Correct,
	})

	if r.FinalRoundActive {
		r.FinalRoundMoved[p.ClientID] = true
	}

	if len(p.Hand) == 0 && p.FinishedPlace == nil {
		place := r.finishedCount() + 1
		p.FinishedPlace = &place
		r.recordAction(p.ClientID, "player_finished", map[string]interface{}{"place": place})
		if !r.FinalRoundActive && len(r.Players) <= 3 {
			r.activateFinalRound(p)
		}
	}

	if r.evaluateEndgame() {
		return res, nil
	}
	r.advanceTurn()
	return res, nil
}

// sortedIndex is the slot a card of the given year belongs at: the first
// index whose year exceeds it.
func sortedIndex(table []models.Card, year int) int {
	return sort.Search(len(table), func(i int) bool {
		return table[i].Year > year
	})
}

func insertAt(table []models.Card, idx int, card models.Card) []models.Card {
	table = append(table, models.Card{})
	copy(table[idx+1:], table[idx:])
	table[idx] = card
	return table
}

// dedupeTable drops repeated card ids, keeping the first occurrence. The
// table should never contain duplicates; this repairs it if it ever does.
func (r *Room) dedupeTable() {
	seen := make(map[int]bool, len(r.Table))
	out := r.Table[:0]
	for _, c := range r.Table {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	r.Table = out
}

func removeFromHand(p *models.Player, cardID int) models.Card {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c
		}
	}
	return models.Card{}
}
