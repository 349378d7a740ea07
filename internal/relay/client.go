// Package relay manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle state for each connection.
package relay

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// connState tracks where a connection is in its lifecycle. Deliveries are only
// attempted in StateOpen; the lifecycle manager is the sole writer of the
// other transitions.
type connState int32

const (
	// StateConnecting covers the window between upgrade and the completion
	// of the connection's initial room joins.
	StateConnecting connState = iota
	// StateOpen means the connection receives routed traffic.
	StateOpen
	// StateClosing means disconnect cleanup has started.
	StateClosing
	// StateClosed means cleanup finished and no room references the client.
	StateClosed
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client represents one WebSocket connection in the relay. It owns the
// underlying socket, a bounded outbound queue, and the per-connection rate
// limiter; room membership lives in the registry and room table.
type Client struct {
	id             string
	userID         string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	state          atomic.Int32
	maxMessageSize int64
	limiter        *tokenBucket
	log            zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// newClient creates a Client for an upgraded connection. The send queue is
// bounded; overflow drops the oldest queued payload (see enqueue).
func newClient(conn *websocket.Conn, hub *Hub, addr, userID string, cfg Config, log zerolog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		userID:         userID,
		conn:           conn,
		send:           make(chan []byte, cfg.SendQueueSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newTokenBucket(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		log:            log.With().Str("clientId", id).Str("addr", addr).Logger(),
		done:           make(chan struct{}),
	}
}

// ID returns the client's connection id.
func (c *Client) ID() string {
	return c.id
}

// UserID returns the identity presented at connect time, empty for anonymous
// connections.
func (c *Client) UserID() string {
	return c.userID
}

// State returns the connection's current lifecycle state.
func (c *Client) State() connState {
	return connState(c.state.Load())
}

func (c *Client) setState(s connState) {
	c.state.Store(int32(s))
}

// enqueue offers a payload to the client's outbound queue without blocking.
// When the queue is full the oldest queued payload is dropped to make room:
// this is a live-state feed where staleness is harmless and backlog is not.
// Returns whether the payload was queued; payloads are never queued for
// clients that are not open.
func (c *Client) enqueue(payload []byte) bool {
	if c.State() != StateOpen {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
	}

	select {
	case <-c.send:
		c.log.Debug().Msg("send queue full, dropped oldest payload")
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// setupReadConnection configures the read deadline and pong handler so dead
// peers are detected by the transport keepalive.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("failed to set initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn().Err(err).Msg("failed to refresh read deadline")
		}
		return nil
	})
}

// logReadError records why the read loop ended, distinguishing expected
// closes from genuine transport failures.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.maxMessageSize).Msg("inbound frame exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("connection closed")
	default:
		c.log.Warn().Err(err).Msg("websocket read error")
	}
}

// readPump reads inbound frames and hands them to the router. It exits on the
// first read error; the deferred disconnect runs the full cleanup path exactly
// once no matter how the connection ended.
func (c *Client) readPump() {
	defer c.hub.disconnect(c)

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.log.Debug().Msg("rate limit exceeded, discarding frame")
			continue
		}

		c.hub.router.HandleFrame(c, raw)
	}
}

// writePump drains the outbound queue onto the socket and keeps the transport
// alive with periodic pings. It exits when the client is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case payload := <-c.send:
			if !c.writePayload(payload) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		case <-c.done:
			c.writeCloseMessage()
			return
		}
	}
}

func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn().Err(err).Msg("error closing connection")
	}
}

func (c *Client) writeCloseMessage() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("error writing close message")
	}
}

// writePayload writes one payload as its own text frame. Each relayed message
// is a standalone JSON document, so frames are never batched.
func (c *Client) writePayload(payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn().Err(err).Msg("failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("failed to write payload")
		}
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn().Err(err).Msg("failed to set write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("failed to write ping")
		}
		return false
	}
	return true
}
