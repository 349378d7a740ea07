// Package integration contains shutdown behavior tests for the relay.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyhub/relay/test/testhelpers"
)

// TestHubShutdownClosesClients verifies that shutting the hub down closes
// every live connection, empties the room table, and completes within the
// timeout.
func TestHubShutdownClosesClients(t *testing.T) {
	hub, server := testhelpers.StartRelay(t, nil)

	a := testhelpers.Dial(t, server.URL, "u1", "p1")
	b := testhelpers.Dial(t, server.URL, "u2", "p1,p2")
	testhelpers.SyncPing(t, a)
	testhelpers.SyncPing(t, b)
	require.Equal(t, 2, hub.Registry().Len())

	require.NoError(t, hub.Shutdown(2*time.Second))

	assert.Equal(t, 0, hub.Registry().Len())
	assert.Equal(t, 0, hub.Rooms().Len())

	// Both clients observe the close.
	if err := a.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, _, err := a.ReadMessage()
	assert.Error(t, err, "closed connection must stop delivering")
}

// TestShutdownIsIdempotent verifies a second shutdown call returns promptly.
func TestShutdownIsIdempotent(t *testing.T) {
	hub, server := testhelpers.StartRelay(t, nil)

	conn := testhelpers.Dial(t, server.URL, "u1", "p1")
	testhelpers.SyncPing(t, conn)

	require.NoError(t, hub.Shutdown(2*time.Second))
	require.NoError(t, hub.Shutdown(2*time.Second))
}
