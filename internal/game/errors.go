// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned to the acting client as structured responses.
// They are always recovered locally and never crash the room.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomAlreadyExists  = errors.New("room already exists")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrNoSuchCard         = errors.New("card is not in your hand")
	ErrCardOnTable        = errors.New("card is already on the table")
	ErrAlreadyFinished    = errors.New("you have already placed all your cards")
	ErrThrottled          = errors.New("too many placements, slow down")
	ErrBusy               = errors.New("another placement is being processed")
	ErrInvalidPlayerCount = errors.New("game requires between 2 and 15 players")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrGameNotStarted     = errors.New("game has not started yet")
	ErrNotHost            = errors.New("only the host can do that")
	ErrPlayerNotFound     = errors.New("player not found")
)
