// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chronoline/chronoline/internal/game"
	"github.com/chronoline/chronoline/internal/models"
)

// WSHandler is the single WebSocket entrypoint. Every room command travels
// over this connection; the connection id minted here is the client's
// transport address for its lifetime.
func WSHandler(logger *logrus.Logger, s *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		// Identity must be resolved before the upgrade so a fresh cookie can
		// ride the handshake response.
		clientID, err := EnsureClientIdentity(w, r)
		if err != nil {
			logger.Warnf("identity resolution failed for %s: %v", remoteAddr, err)
			http.Error(w, "identity failure", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chrono"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "chrono" {
			c.Close(BadSubprotocolError, "client must speak the chrono subprotocol")
			return
		}

		connID := uuid.New()
		logger.Infof("Client %s connected from %s (conn %s)", clientID, remoteAddr, connID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readRoomMessages(ctx, c, s, connID, clientID, logger)

		logger.Infof("Client %s read loop exited (conn %s)", clientID, connID)
		s.Store.HandleDisconnect(connID)
	}
}

// readRoomMessages pumps commands off the socket until it closes.
func readRoomMessages(ctx context.Context, c *websocket.Conn, s *RoomServer, connID uuid.UUID, cookieClientID string, logger *logrus.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for conn %s", connID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// Server shutdown or request context teardown.
			} else {
				logger.Warnf("Read error for conn %s: %v (CloseStatus: %d)", connID, err, closeStatus)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("Ignoring non-text message type %d from conn %s", typ, connID)
			continue
		}

		var cmd models.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warnf("Invalid JSON from conn %s: %v", connID, err)
			sendWsError(ctx, c, "invalid JSON")
			continue
		}

		handleCommand(ctx, c, s, connID, cookieClientID, &cmd, logger)
	}
}

// handleCommand routes one parsed command. The payload clientId wins over
// the cookie identity when both are present, so tests and native clients
// that manage their own ids keep working.
func handleCommand(ctx context.Context, c *websocket.Conn, s *RoomServer, connID uuid.UUID, cookieClientID string, cmd *models.Command, logger *logrus.Logger) {
	clientID := cmd.ClientID
	if clientID == "" {
		clientID = cookieClientID
	}

	switch cmd.Type {
	case "ping":
		_ = sendWsMessage(ctx, c, map[string]interface{}{"type": "pong", "ts": time.Now().UnixMilli()})

	case "create_room":
		room, err := s.Store.CreateRoom(cmd.RoomID, clientID, cmd.Name, connID, c)
		if err != nil {
			sendWsError(ctx, c, err.Error())
			return
		}
		room.Mu.Lock()
		if room.SendFn == nil {
			room.SendFn = makeSendFunc(logger)
		}
		roomID := room.ID
		room.PushState()
		room.Mu.Unlock()
		logger.Infof("Client %s created room %s", clientID, roomID)
		_ = sendWsMessage(ctx, c, map[string]interface{}{
			"type":     "room_created",
			"roomId":   roomID,
			"clientId": clientID,
		})

	case "join_room":
		room, err := s.Store.FindRoom(cmd.RoomID)
		if err != nil {
			sendWsError(ctx, c, err.Error())
			return
		}
		room.Mu.Lock()
		if room.SendFn == nil {
			room.SendFn = makeSendFunc(logger)
		}
		res := s.Store.ReconcileJoin(room, clientID, connID, cmd.Name, c)
		room.Mu.Unlock()
		logger.Infof("Client %s joined room %s (new seat: %v)", clientID, cmd.RoomID, res.IsNew)
		_ = sendWsMessage(ctx, c, map[string]interface{}{
			"type":     "joined",
			"roomId":   cmd.RoomID,
			"clientId": res.Player.ClientID,
			"isNew":    res.IsNew,
		})

	case "start_game":
		withRoom(ctx, c, s, connID, func(room *game.Room) {
			if err := room.StartGame(connID); err != nil {
				sendWsError(ctx, c, err.Error())
			}
		})

	case "play_card":
		withRoom(ctx, c, s, connID, func(room *game.Room) {
			res, err := room.AttemptPlacement(connID, clientID, cmd.CardID, cmd.InsertIndex)
			if err != nil {
				sendWsError(ctx, c, err.Error())
				return
			}
			_ = sendWsMessage(ctx, c, map[string]interface{}{
				"type":    "placement_result",
				"correct": res.Correct,
				"cardId":  res.Card.ID,
				"index":   res.Index,
			})
		})

	case "change_name":
		withRoom(ctx, c, s, connID, func(room *game.Room) {
			if err := room.ChangeName(connID, cmd.Name); err != nil {
				sendWsError(ctx, c, err.Error())
			}
		})

	case "leave_room":
		withRoom(ctx, c, s, connID, func(room *game.Room) {
			if err := s.Store.LeaveRoom(room, connID); err != nil {
				sendWsError(ctx, c, err.Error())
			}
		})

	case "kick_player":
		withRoom(ctx, c, s, connID, func(room *game.Room) {
			if err := s.Store.KickPlayer(room, connID, cmd.TargetConnectionID, cmd.TargetClientID); err != nil {
				sendWsError(ctx, c, err.Error())
			}
		})

	default:
		sendWsError(ctx, c, "unknown command: "+cmd.Type)
	}
}

// withRoom resolves the caller's room by connection id and runs fn under the
// room lock.
func withRoom(ctx context.Context, c *websocket.Conn, s *RoomServer, connID uuid.UUID, fn func(room *game.Room)) {
	room, ok := s.Store.RoomForConnection(connID)
	if !ok {
		sendWsError(ctx, c, "not in a room")
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	fn(room)
}

// makeSendFunc builds the per-player delivery function the room calls while
// holding its lock. Marshaling happens inline; the socket write itself runs
// asynchronously so a slow client never blocks game logic.
func makeSendFunc(logger *logrus.Logger) func(p *models.Player, ev game.Event) {
	return func(p *models.Player, ev game.Event) {
		conn := p.Conn
		if conn == nil {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal %s event for client %s: %v", ev.Type, p.ClientID, err)
			return
		}
		go func(conn *websocket.Conn, data []byte, clientID string) {
			wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := conn.Write(wctx, websocket.MessageText, data); err != nil {
				logger.Debugf("Write to client %s failed: %v", clientID, err)
			}
		}(conn, data, p.ClientID)
	}
}
