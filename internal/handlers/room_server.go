// internal/handlers/room_server.go
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/chronoline/chronoline/internal/game"
)

// RoomServer bundles the room store with the logger the HTTP layer uses.
type RoomServer struct {
	Store  *game.RoomStore
	Logger *logrus.Logger
}

func NewRoomServer(store *game.RoomStore, logger *logrus.Logger) *RoomServer {
	return &RoomServer{Store: store, Logger: logger}
}

// HealthHandler reports liveness and the current room count.
func (s *RoomServer) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
