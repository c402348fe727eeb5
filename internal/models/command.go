// internal/models/command.go
package models

// Command captures a client's request as received over its connection
// channel. Fields are populated per command type; unknown fields are ignored.
type Command struct {
	Type string `json:"type"`

	RoomID   string `json:"roomId,omitempty"`
	Name     string `json:"name,omitempty"`
	ClientID string `json:"clientId,omitempty"`

	// play_card
	CardID      int `json:"cardId,omitempty"`
	InsertIndex int `json:"insertIndex"`

	// kick_player targets a seat by its current connection id; the durable
	// client id is accepted as a fallback for a seat that is mid-reconnect.
	TargetConnectionID string `json:"playerConnectionId,omitempty"`
	TargetClientID     string `json:"targetClientId,omitempty"`
}
