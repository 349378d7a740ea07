// Package relay coordinates connection admission, initial room joins, and
// cleanup on close via the Hub type.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub is the connection lifecycle manager. It admits upgraded connections,
// performs their connect-time room joins, starts the per-connection pumps,
// and guarantees that disconnect cleanup runs exactly once per connection
// regardless of how the close was triggered.
type Hub struct {
	cfg      Config
	registry *Registry
	rooms    *RoomTable
	router   *Router
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewHub creates a Hub with its registry, room table, and router wired
// together. A nil authorizer leaves joinRoom requests unrestricted.
func NewHub(cfg *Config, authorizer JoinAuthorizer, log zerolog.Logger) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	sanitized := cfg.sanitized()

	registry := NewRegistry()
	rooms := NewRoomTable(registry, log)
	return &Hub{
		cfg:      sanitized,
		registry: registry,
		rooms:    rooms,
		router:   NewRouter(rooms, authorizer, log),
		log:      log,
	}
}

// Config returns the sanitized configuration the hub runs with.
func (h *Hub) Config() Config {
	return h.cfg
}

// Rooms exposes the room table, primarily for tests and diagnostics.
func (h *Hub) Rooms() *RoomTable {
	return h.rooms
}

// Registry exposes the connection registry, primarily for tests and
// diagnostics.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeConn admits an upgraded WebSocket connection. The connect-time joins
// (the identity's user room, then each declared party room) complete before
// the read pump starts, so no join race can drop the connection's own first
// messages.
func (h *Hub) ServeConn(conn *websocket.Conn, remoteAddr, userID, partyList string) {
	c := newClient(conn, h, remoteAddr, userID, h.cfg, h.log)
	h.registry.Register(c)

	if userID != "" {
		h.rooms.Join(UserRoom(userID), c)
	}
	for _, partyID := range splitList(partyList) {
		h.rooms.Join(PartyRoom(partyID), c)
	}

	c.setState(StateOpen)
	h.log.Info().
		Str("clientId", c.ID()).
		Str("addr", remoteAddr).
		Str("userId", userID).
		Int("clients", h.registry.Len()).
		Msg("client connected")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// disconnect tears a connection down: it stops delivery, removes the client
// from every room it joined, unregisters it, and closes the socket. Safe to
// call from any path (read error, shutdown, transport failure); only the
// first call does the work.
func (h *Hub) disconnect(c *Client) {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		close(c.done)

		joined := h.registry.Unregister(c)
		for _, roomKey := range joined {
			h.rooms.Leave(roomKey, c)
		}

		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn().Str("clientId", c.ID()).Err(err).Msg("error closing connection")
			}
		}
		c.setState(StateClosed)

		h.log.Info().
			Str("clientId", c.ID()).
			Int("rooms", len(joined)).
			Int("clients", h.registry.Len()).
			Msg("client disconnected")
	})
}

// Shutdown closes every live connection and waits for their pumps to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	clients := h.registry.Clients()
	h.log.Info().Int("clients", len(clients)).Msg("shutting down client connections")

	for _, c := range clients {
		h.disconnect(c)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
