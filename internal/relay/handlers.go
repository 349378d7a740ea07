// Package relay exposes the HTTP handlers for WebSocket upgrades and health
// checks.
package relay

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// NewWebSocketHandler returns the upgrade handler for the relay endpoint. It
// validates the request method, checks the Origin header against the hub's
// configured allow-list, extracts the connect-time subscription parameters
// (userId and a comma-separated partyIds list) from the query string, and
// hands the upgraded connection to the hub.
func NewWebSocketHandler(hub *Hub, log zerolog.Logger) http.HandlerFunc {
	origins := newOriginPolicy(hub.Config().AllowedOrigins)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.check(r) {
				return true
			}
			log.Warn().Str("origin", r.Header.Get("Origin")).Msg("blocked connection from disallowed origin")
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		query := r.URL.Query()
		userID := query.Get("userId")
		partyList := query.Get("partyIds")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}

		hub.ServeConn(conn, r.RemoteAddr, userID, partyList)
	}
}

// HealthHandler provides a simple health check endpoint that returns relay
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Party relay is running!")
}
