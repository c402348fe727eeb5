package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// extractCookieToken extracts a named cookie value from the "Cookie" header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// sendWsMessage marshals v and writes it to the socket with a short timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, data)
}

// sendWsError reports a request failure back to the requesting client only.
func sendWsError(ctx context.Context, c *websocket.Conn, message string) {
	_ = sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
