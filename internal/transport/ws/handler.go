package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// Authenticator resolves the session cookie of a request to a user.
type Authenticator interface {
	Authenticate(r *http.Request) (uuid.UUID, string, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket. The session
// cookie is checked before the upgrade; the new connection replaces any
// earlier one of the same user.
func ServeWS(registry *Registry, auth Authenticator, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := auth.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "UNAUTHORIZED", "message": "authentication required"},
			})
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logrus.WithError(err).Warn("ws: accept error")
			return
		}
		conn.SetReadLimit(maxMessageSize)

		client := NewClient(conn, userID)
		if prev := registry.Bind(userID, client); prev != nil {
			prev.Close()
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "connections": registry.Len()}).Info("ws: user connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer func() {
			cancel()
			registry.Release(userID, client)
			client.Close()
			conn.Close(websocket.StatusNormalClosure, "")
			logrus.WithField("user_id", userID).Info("ws: user disconnected")
		}()

		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
