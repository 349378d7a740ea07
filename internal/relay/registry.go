// Package relay tracks live client connections and the set of rooms each one
// has joined via the Registry type.
package relay

import "sync"

// Registry owns the set of live clients and is the single source of truth for
// "which rooms did this connection join". The room table maintains the
// per-client room set through addRoom/removeRoom so the forward and reverse
// indexes stay in lockstep; the registry itself never touches the room table.
type Registry struct {
	mu    sync.Mutex
	conns map[*Client]map[string]struct{}
}

// NewRegistry creates an empty Registry ready to admit clients.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[*Client]map[string]struct{})}
}

// Register admits a client with an empty room set. It always succeeds.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[c]; !exists {
		r.conns[c] = make(map[string]struct{})
	}
}

// Unregister removes the client and returns the rooms it had joined so the
// caller can leave each one. Calling it again for an already-unregistered
// client returns nil, making disconnect cleanup idempotent.
func (r *Registry) Unregister(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, exists := r.conns[c]
	if !exists {
		return nil
	}
	delete(r.conns, c)

	rooms := make([]string, 0, len(joined))
	for key := range joined {
		rooms = append(rooms, key)
	}
	return rooms
}

// addRoom records a room membership for a registered client. It reports false
// when the client is no longer registered, which lets the room table refuse
// joins that race with disconnect cleanup.
func (r *Registry) addRoom(c *Client, roomKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, exists := r.conns[c]
	if !exists {
		return false
	}
	joined[roomKey] = struct{}{}
	return true
}

func (r *Registry) removeRoom(c *Client, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if joined, exists := r.conns[c]; exists {
		delete(joined, roomKey)
	}
}

// Clients returns a snapshot of all registered clients.
func (r *Registry) Clients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.conns))
	for c := range r.conns {
		clients = append(clients, c)
	}
	return clients
}

// Len reports the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
