// Package testhelpers provides common utilities for testing the relay.
//
// It contains reusable helpers shared across integration tests: starting a
// relay over httptest, dialing WebSocket connections with connect-time
// subscription parameters, and reading or asserting on relayed JSON messages.
package testhelpers

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/partyhub/relay/internal/relay"
)

// StartRelay spins up a hub and HTTP server for a test. Both are torn down
// automatically when the test finishes.
func StartRelay(t *testing.T, customize func(cfg *relay.Config)) (*relay.Hub, *httptest.Server) {
	t.Helper()

	cfg := relay.NewConfig()
	if customize != nil {
		customize(cfg)
	}

	hub := relay.NewHub(cfg, relay.AllowAllJoins(), zerolog.Nop())
	server := httptest.NewServer(relay.SetupRoutes(hub, zerolog.Nop()))

	t.Cleanup(func() {
		server.Close()
		_ = hub.Shutdown(time.Second)
	})

	return hub, server
}

// WebSocketURL converts an httptest server URL into the relay endpoint URL
// with the given connect-time parameters.
func WebSocketURL(t *testing.T, serverURL, userID, partyIDs string) string {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	query := url.Values{}
	if userID != "" {
		query.Set("userId", userID)
	}
	if partyIDs != "" {
		query.Set("partyIds", partyIDs)
	}
	if encoded := query.Encode(); encoded != "" {
		wsURL += "?" + encoded
	}
	return wsURL
}

// Dial connects to the relay with the given identity and party list. The
// connection is closed automatically when the test finishes.
func Dial(t *testing.T, serverURL, userID, partyIDs string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(WebSocketURL(t, serverURL, userID, partyIDs), nil)
	if err != nil {
		t.Fatalf("Failed to dial relay: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// SendJSON marshals and sends one message on the connection.
func SendJSON(t *testing.T, conn *websocket.Conn, message any) {
	t.Helper()

	payload, err := json.Marshal(message)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
}

// ReadJSON reads one message from the connection within the timeout and
// decodes it into a generic map.
func ReadJSON(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("Failed to decode message %q: %v", payload, err)
	}
	return out
}

// ExpectNoMessage asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received %q", payload)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// SyncPing sends an application-level ping and waits for the pong. Because
// the relay answers pings on the connection's own read loop, receiving the
// pong guarantees every earlier frame from this connection was processed and
// that the connection's connect-time joins completed.
func SyncPing(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	SendJSON(t, conn, map[string]any{"type": "ping"})
	msg := ReadJSON(t, conn, 2*time.Second)
	if msg["type"] != "pong" {
		t.Fatalf("Expected pong, got %v", msg)
	}
}

// WaitFor polls the condition until it holds or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool, description string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", description)
}
