package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHubDisconnectCleansUpRooms verifies the exactly-once cleanup path: the
// client is removed from every joined room, rooms it emptied are deleted, and
// the registry forgets it.
func TestHubDisconnectCleansUpRooms(t *testing.T) {
	hub := newTestHub(t)
	a := connectTestClient(t, hub, "u1", "p1", "p2")
	b := connectTestClient(t, hub, "u2", "p2")

	require.Equal(t, 2, hub.Registry().Len())
	require.Equal(t, 4, hub.Rooms().Len())

	hub.disconnect(a)

	assert.Equal(t, 1, hub.Registry().Len())
	assert.Equal(t, StateClosed, a.State())
	assert.Equal(t, 0, hub.Rooms().Members("user:u1"))
	assert.Equal(t, 0, hub.Rooms().Members("party:p1"))
	assert.Equal(t, 1, hub.Rooms().Members("party:p2"), "remaining member must be untouched")
	assert.Equal(t, 2, hub.Rooms().Len())

	// Broadcast to the emptied room is a silent no-op afterwards.
	assert.NotPanics(t, func() {
		hub.Rooms().Broadcast("party:p1", []byte(`{"type":"memberUpdated"}`))
	})
	assertNoPayload(t, a)
	assertNoPayload(t, b)
}

// TestHubDisconnectIdempotent verifies that calling disconnect twice, as can
// happen when a transport failure races shutdown, does the work only once.
func TestHubDisconnectIdempotent(t *testing.T) {
	hub := newTestHub(t)
	c := connectTestClient(t, hub, "u1", "p1")

	hub.disconnect(c)
	assert.NotPanics(t, func() { hub.disconnect(c) })
	assert.Equal(t, 0, hub.Registry().Len())
}

// TestHubJoinAfterDisconnectRefused verifies that a late joinRoom for a
// client whose cleanup already ran cannot resurrect room membership.
func TestHubJoinAfterDisconnectRefused(t *testing.T) {
	hub := newTestHub(t)
	c := connectTestClient(t, hub, "u1")

	hub.disconnect(c)
	hub.Rooms().Join("party:p1", c)

	assert.Equal(t, 0, hub.Rooms().Len())
}
