// Package signaling implements the control-plane surface of the relay: the
// websocket endpoint clients connect to, the event vocabulary exchanged over
// it, the per-connection session coordinator, and the call-negotiation relay.
//
// The package holds no room or matchmaking state of its own; it routes each
// inbound event into the room directory or the matchmaking queue and performs
// the notification fan-out those components describe.
package signaling
