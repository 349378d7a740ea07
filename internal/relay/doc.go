// Package relay implements the room-based WebSocket broadcast relay.
//
// The implementation is organized into specialized files for configuration,
// the connection registry, the room table, message routing, client pumps, and
// HTTP wiring to keep the codebase maintainable and testable as the project
// grows.
package relay
