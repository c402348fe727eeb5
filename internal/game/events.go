// internal/game/events.go
package game

import (
	"github.com/chronoline/chronoline/internal/models"
)

// EventType is an enum-like type for events broadcast to room members.
type EventType string

const (
	EventLobbyUpdate EventType = "lobby_update" // lobby roster changed
	EventGameStarted EventType = "game_started" // per-recipient: includes own hand
	EventUpdate      EventType = "update"       // per-recipient in-game state
	EventGameOver    EventType = "game_over"    // winners + scoreboard, last message before teardown
	EventAutoSkip    EventType = "auto_skip"    // informational, after a reconnection-triggered skip
	EventKicked      EventType = "kicked"       // sent to the removed player only
)

// PlayerSummary is the public view of a seat; hands are sized, never shown.
type PlayerSummary struct {
	ClientID      string `json:"clientId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	HandSize      int    `json:"handSize"`
	Online        bool   `json:"online"`
	IsHost        bool   `json:"isHost"`
	FinishedPlace *int   `json:"finishedPlace,omitempty"`
}

// ScoreRow is one line of the endgame scoreboard.
type ScoreRow struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	HandSize int    `json:"handSize"`
}

// Event is the envelope for everything the room pushes to clients. Fields are
// populated per event type; Hand is always the recipient's own hand.
type Event struct {
	Type            EventType       `json:"type"`
	RoomID          string          `json:"roomId,omitempty"`
	Players         []PlayerSummary `json:"players,omitempty"`
	GameStarted     bool            `json:"gameStarted"`
	Hand            []models.Card   `json:"hand,omitempty"`
	Table           []models.Card   `json:"table,omitempty"`
	DeckSize        int             `json:"deckSize,omitempty"`
	CurrentPlayerID string          `json:"currentPlayerId,omitempty"`
	TurnDeadline    int64           `json:"turnDeadline,omitempty"` // unix millis
	Winners         []string        `json:"winners,omitempty"`
	Scoreboard      []ScoreRow      `json:"scoreboard,omitempty"`
	Message         string          `json:"message,omitempty"`
}
