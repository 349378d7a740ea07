// Package relay defines the wire message vocabulary, room key namespaces, and
// utility helpers that are reused across client, router, and room table logic.
package relay

import (
	"encoding/json"
	"strings"
)

// Inbound message types.
const (
	TypePing                = "ping"
	TypeGateUpdate          = "gateUpdate"
	TypeActiveAccountUpdate = "activeAccountUpdate"
	TypeJoinRoom            = "joinRoom"
)

// Outbound message types.
const (
	TypePong                 = "pong"
	TypeMemberUpdated        = "memberUpdated"
	TypeActiveAccountUpdated = "activeAccountUpdated"
)

var pongPayload = []byte(`{"type":"pong"}`)

// UserRoom returns the room key for a user's own channel.
func UserRoom(userID string) string {
	return "user:" + userID
}

// PartyRoom returns the room key for a party channel.
func PartyRoom(partyID string) string {
	return "party:" + partyID
}

// inboundFrame is one decoded client frame. The fields map keeps every payload
// field so relayed messages are forwarded verbatim apart from the type rewrite.
type inboundFrame struct {
	Type    string
	UserID  string
	RoomKey string
	// PartyIDs is resolved from a "partyIds" array when present, otherwise
	// from a single "partyId" field.
	PartyIDs []string

	fields map[string]any
}

// decodeFrame parses a raw frame into its routing fields. Any JSON object with
// a string "type" decodes successfully; missing or mistyped routing fields are
// simply left empty so the router can ignore what it does not need.
func decodeFrame(raw []byte) (*inboundFrame, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}

	msgType, ok := fields["type"].(string)
	if !ok || msgType == "" {
		return nil, false
	}

	frame := &inboundFrame{Type: msgType, fields: fields}

	if userID, ok := fields["userId"].(string); ok {
		frame.UserID = userID
	}
	if roomKey, ok := fields["roomKey"].(string); ok {
		frame.RoomKey = roomKey
	}

	if ids, ok := fields["partyIds"].([]any); ok {
		for _, id := range ids {
			if party, ok := id.(string); ok && party != "" {
				frame.PartyIDs = append(frame.PartyIDs, party)
			}
		}
	} else if party, ok := fields["partyId"].(string); ok && party != "" {
		frame.PartyIDs = append(frame.PartyIDs, party)
	}

	return frame, true
}

// rewritten serializes the frame with its type discriminator replaced,
// preserving every other payload field.
func (f *inboundFrame) rewritten(newType string) ([]byte, error) {
	f.fields["type"] = newType
	return json.Marshal(f.fields)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
