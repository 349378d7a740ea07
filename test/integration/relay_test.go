// Package integration contains integration tests for the relay.
//
// These tests verify complete system behavior with a real HTTP server and
// WebSocket connections: upgrades, connect-time subscriptions, message
// routing, and disconnect cleanup working together end to end.
package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyhub/relay/internal/relay"
	"github.com/partyhub/relay/test/testhelpers"
)

// TestHealthEndpoint verifies the health check responds with plain text.
func TestHealthEndpoint(t *testing.T) {
	_, server := testhelpers.StartRelay(t, nil)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "running")
}

// TestWebSocketEndpointRejectsNonGet verifies the upgrade endpoint only
// accepts GET requests.
func TestWebSocketEndpointRejectsNonGet(t *testing.T) {
	_, server := testhelpers.StartRelay(t, nil)

	resp, err := http.Post(server.URL+"/ws", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// TestConnectTimeSubscriptions verifies that connect-time parameters create
// the expected rooms: the identity's user room plus each declared party room,
// with blank and padded entries in the party list ignored.
func TestConnectTimeSubscriptions(t *testing.T) {
	hub, server := testhelpers.StartRelay(t, nil)

	conn := testhelpers.Dial(t, server.URL, "u1", " p1, p2 ,,p3")
	testhelpers.SyncPing(t, conn)

	assert.Equal(t, 1, hub.Rooms().Members("user:u1"))
	assert.Equal(t, 1, hub.Rooms().Members("party:p1"))
	assert.Equal(t, 1, hub.Rooms().Members("party:p2"))
	assert.Equal(t, 1, hub.Rooms().Members("party:p3"))
	assert.Equal(t, 4, hub.Rooms().Len())
	assert.Equal(t, 1, hub.Registry().Len())
}

// TestAnonymousConnection verifies a connection without any parameters is
// admitted and joins no rooms.
func TestAnonymousConnection(t *testing.T) {
	hub, server := testhelpers.StartRelay(t, nil)

	conn := testhelpers.Dial(t, server.URL, "", "")
	testhelpers.SyncPing(t, conn)

	assert.Equal(t, 1, hub.Registry().Len())
	assert.Equal(t, 0, hub.Rooms().Len())
}

// TestDisconnectCleanup verifies that closing a connection removes it from
// every room and from the registry, deleting rooms it emptied.
func TestDisconnectCleanup(t *testing.T) {
	hub, server := testhelpers.StartRelay(t, nil)

	conn := testhelpers.Dial(t, server.URL, "u1", "p1,p2")
	testhelpers.SyncPing(t, conn)
	require.Equal(t, 3, hub.Rooms().Len())

	require.NoError(t, conn.Close())

	testhelpers.WaitFor(t, 2*time.Second, func() bool {
		return hub.Registry().Len() == 0
	}, "registry cleanup after close")
	assert.Equal(t, 0, hub.Rooms().Len(), "no rooms may survive their last member")
}

// TestRelaySurvivesGarbageFrames verifies malformed JSON and unknown message
// types are dropped without terminating the connection.
func TestRelaySurvivesGarbageFrames(t *testing.T) {
	_, server := testhelpers.StartRelay(t, nil)

	conn := testhelpers.Dial(t, server.URL, "u1", "p1")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`)))
	testhelpers.SendJSON(t, conn, map[string]any{"type": "someFutureKind", "partyId": "p1"})

	// The connection must still be serviceable afterwards.
	testhelpers.SyncPing(t, conn)
}

// TestOriginEnforcement verifies that browser origins outside the allow-list
// are refused at upgrade time while allowed origins and non-browser clients
// connect normally.
func TestOriginEnforcement(t *testing.T) {
	_, server := testhelpers.StartRelay(t, func(cfg *relay.Config) {
		cfg.AllowedOrigins = []string{"https://app.example.com"}
	})
	wsURL := testhelpers.WebSocketURL(t, server.URL, "u1", "")

	blocked := http.Header{}
	blocked.Set("Origin", "https://evil.example.com")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, blocked)
	require.Error(t, err)
	require.Nil(t, conn)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()
	}

	allowed := http.Header{}
	allowed.Set("Origin", "https://app.example.com")
	conn, resp, err = websocket.DefaultDialer.Dial(wsURL, allowed)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	testhelpers.SyncPing(t, conn)
}
