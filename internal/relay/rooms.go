// Package relay coordinates room membership and fan-out broadcast through the
// RoomTable type.
package relay

import (
	"sync"

	"github.com/rs/zerolog"
)

// RoomTable maps room keys to their subscribed clients. Mutation is serialized
// by a single mutex; broadcast snapshots the member set under the lock and
// delivers outside it so a slow subscriber cannot stall joins, leaves, or
// broadcasts to other rooms.
type RoomTable struct {
	mu       sync.Mutex
	rooms    map[string]map[*Client]struct{}
	registry *Registry
	log      zerolog.Logger
}

// NewRoomTable creates an empty RoomTable backed by the given registry.
func NewRoomTable(registry *Registry, log zerolog.Logger) *RoomTable {
	return &RoomTable{
		rooms:    make(map[string]map[*Client]struct{}),
		registry: registry,
		log:      log,
	}
}

// Join subscribes the client to the room, creating the room if absent. Joining
// a room the client is already in is a no-op. Joins for clients that have
// already been unregistered are refused so disconnect cleanup stays symmetric.
func (t *RoomTable) Join(roomKey string, c *Client) {
	if !t.registry.addRoom(c, roomKey) {
		return
	}

	t.mu.Lock()
	members, exists := t.rooms[roomKey]
	if !exists {
		members = make(map[*Client]struct{})
		t.rooms[roomKey] = members
	}
	members[c] = struct{}{}
	count := len(members)
	t.mu.Unlock()

	t.log.Debug().Str("room", roomKey).Str("clientId", c.ID()).Int("members", count).Msg("client joined room")
}

// Leave removes the client from the room. The room entry is deleted entirely
// once its last member leaves so stale empty rooms cannot accumulate over long
// process lifetimes.
func (t *RoomTable) Leave(roomKey string, c *Client) {
	t.mu.Lock()
	members, exists := t.rooms[roomKey]
	if exists {
		delete(members, c)
		if len(members) == 0 {
			delete(t.rooms, roomKey)
		}
	}
	t.mu.Unlock()

	if exists {
		t.registry.removeRoom(c, roomKey)
		t.log.Debug().Str("room", roomKey).Str("clientId", c.ID()).Msg("client left room")
	}
}

// Broadcast delivers the payload to every member of the room that is currently
// open. An absent room is a silent no-op: broadcasting to a room whose members
// are all offline is expected and harmless. Members in a non-deliverable state
// are skipped; they clean themselves up via their own close path.
func (t *RoomTable) Broadcast(roomKey string, payload []byte) {
	members := t.snapshot(roomKey)
	if members == nil {
		return
	}

	delivered := 0
	for _, c := range members {
		if c.enqueue(payload) {
			delivered++
		}
	}

	t.log.Debug().Str("room", roomKey).Int("members", len(members)).Int("delivered", delivered).Msg("broadcast")
}

// snapshot returns the room's members at the time of the call, or nil when the
// room does not exist.
func (t *RoomTable) snapshot(roomKey string) []*Client {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, exists := t.rooms[roomKey]
	if !exists {
		return nil
	}

	snapshot := make([]*Client, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// Members reports the current member count of a room, zero when absent.
func (t *RoomTable) Members(roomKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms[roomKey])
}

// Len reports the number of rooms with at least one member.
func (t *RoomTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms)
}
