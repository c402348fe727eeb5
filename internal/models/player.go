package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is one seat in a room. ClientID is the durable identity supplied by
// the client and survives reconnects; ConnectionID is the transient transport
// address, rebound on every reconnect.
type Player struct {
	ConnectionID  uuid.UUID       `json:"connectionId"`
	ClientID      string          `json:"clientId"`
	Name          string          `json:"name"`
	Score         int             `json:"score"`
	Hand          []Card          `json:"hand"`
	Online        bool            `json:"online"`
	FinishedPlace *int            `json:"finishedPlace,omitempty"`
	Conn          *websocket.Conn `json:"-"`
}

// HoldsCard reports whether the player's hand contains the given card id.
func (p *Player) HoldsCard(cardID int) bool {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return true
		}
	}
	return false
}
