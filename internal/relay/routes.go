// Package relay wires HTTP handlers into a ServeMux via routing helpers.
package relay

import (
	"net/http"

	"github.com/rs/zerolog"
)

// SetupRoutes configures and returns an HTTP ServeMux with all relay routes:
// the health check and the WebSocket endpoint.
func SetupRoutes(hub *Hub, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle("/ws", NewWebSocketHandler(hub, log))
	return mux
}
