// Package bridge owns the websocket side of the cash register bridge.
//
// Ownership boundary:
// - sub-protocol negotiation
// - per-connection message loop (text commands, ping/pong, close, echo)
// - listener lifecycle and connection supervision
//
// Lifecycle order per connection:
// - negotiating -> open -> closed
//
// A decode or device failure never closes a connection; only transport
// errors and close frames do. Nothing a connection does reaches the listener.
package bridge
