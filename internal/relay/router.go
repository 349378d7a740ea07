// Package relay decodes inbound frames and dispatches them to the room table
// via the Router type.
package relay

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// JoinAuthorizer decides whether a connection with the given identity may
// subscribe to a room via an explicit joinRoom request. Initial joins derived
// from connect-time parameters are not subject to authorization.
type JoinAuthorizer interface {
	Authorize(ctx context.Context, userID, roomKey string) bool
}

// MembershipLookup resolves the set of party ids an identity currently
// belongs to. It models the external group-membership service.
type MembershipLookup interface {
	PartyIDs(ctx context.Context, userID string) ([]string, error)
}

type allowAllJoins struct{}

func (allowAllJoins) Authorize(context.Context, string, string) bool { return true }

// AllowAllJoins returns the default authorizer: any connection may join any
// room key. This reproduces the relay's historical behavior; deployments that
// want joins checked against group membership use MembershipAuthorizer.
func AllowAllJoins() JoinAuthorizer {
	return allowAllJoins{}
}

// MembershipAuthorizer admits party room joins only when the membership
// lookup lists the party for the connection's identity, and user room joins
// only for the connection's own identity. Room keys outside both namespaces
// are refused.
type MembershipAuthorizer struct {
	Lookup MembershipLookup
}

// Authorize implements JoinAuthorizer. Lookup failures deny the join.
func (a *MembershipAuthorizer) Authorize(ctx context.Context, userID, roomKey string) bool {
	if target, ok := strings.CutPrefix(roomKey, "user:"); ok {
		return userID != "" && target == userID
	}

	partyID, ok := strings.CutPrefix(roomKey, "party:")
	if !ok || userID == "" {
		return false
	}

	parties, err := a.Lookup.PartyIDs(ctx, userID)
	if err != nil {
		return false
	}
	for _, id := range parties {
		if id == partyID {
			return true
		}
	}
	return false
}

// Router classifies inbound frames by their type discriminator, resolves
// target rooms, and invokes the room table's broadcast. All failure handling
// is a silent drop: the protocol has no user-facing error channel.
type Router struct {
	rooms      *RoomTable
	authorizer JoinAuthorizer
	log        zerolog.Logger
}

// NewRouter creates a Router over the given room table. A nil authorizer
// means joins are unrestricted.
func NewRouter(rooms *RoomTable, authorizer JoinAuthorizer, log zerolog.Logger) *Router {
	if authorizer == nil {
		authorizer = AllowAllJoins()
	}
	return &Router{rooms: rooms, authorizer: authorizer, log: log}
}

// HandleFrame processes one inbound frame from a client. Malformed JSON and
// unknown message types are dropped without a response, keeping the relay
// forward compatible with future message kinds.
func (r *Router) HandleFrame(c *Client, raw []byte) {
	frame, ok := decodeFrame(raw)
	if !ok {
		r.log.Debug().Str("clientId", c.ID()).Msg("dropping malformed frame")
		return
	}

	switch frame.Type {
	case TypePing:
		c.enqueue(pongPayload)
	case TypeGateUpdate:
		r.relay(frame, TypeMemberUpdated)
	case TypeActiveAccountUpdate:
		r.relay(frame, TypeActiveAccountUpdated)
	case TypeJoinRoom:
		r.handleJoin(c, frame.RoomKey)
	default:
		r.log.Debug().Str("clientId", c.ID()).Str("type", frame.Type).Msg("ignoring unknown message type")
	}
}

// relay rewrites the frame's type and broadcasts the same payload to every
// resolved room independently: each party room named by the frame, plus the
// sender identity's user room. A connection subscribed to several of those
// rooms receives one copy per room; deliveries are not deduplicated.
func (r *Router) relay(frame *inboundFrame, outType string) {
	payload, err := frame.rewritten(outType)
	if err != nil {
		r.log.Warn().Err(err).Str("type", frame.Type).Msg("failed to serialize relayed payload")
		return
	}

	for _, partyID := range frame.PartyIDs {
		r.rooms.Broadcast(PartyRoom(partyID), payload)
	}
	if frame.UserID != "" {
		r.rooms.Broadcast(UserRoom(frame.UserID), payload)
	}
}

func (r *Router) handleJoin(c *Client, roomKey string) {
	if roomKey == "" {
		return
	}

	if !r.authorizer.Authorize(context.Background(), c.UserID(), roomKey) {
		r.log.Debug().Str("clientId", c.ID()).Str("room", roomKey).Msg("join refused")
		return
	}

	r.rooms.Join(roomKey, c)
}
