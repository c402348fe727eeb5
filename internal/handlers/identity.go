// internal/handlers/identity.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chronoline/chronoline/internal/auth"
)

// EnsureClientIdentity resolves the durable client id for this browser. If a
// valid client_token cookie is present its subject is reused; otherwise a
// fresh id is minted and set as a cookie. Must run before the WebSocket
// upgrade so the Set-Cookie header can ride the handshake response.
func EnsureClientIdentity(w http.ResponseWriter, r *http.Request) (string, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, "client_token=") {
		token := extractCookieToken(cookieHeader, "client_token")
		if clientID, err := auth.AuthenticateClientToken(token); err == nil {
			return clientID, nil
		}
		// Expired or tampered token: fall through and reissue.
	}

	clientID := uuid.NewString()
	token, err := auth.CreateClientToken(clientID)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "client_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return clientID, nil
}
