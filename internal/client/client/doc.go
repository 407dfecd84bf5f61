// Package client is the endpoint side of the MouseTrap protocol.
//
// A Client owns one encrypted session with the service. Connect dials and
// performs the key handshake, retrying with a fixed delay until it succeeds
// or the context ends. Every request method is safe for concurrent use; they
// are serialized over the single session.
//
// # Error Handling
//
// Transport faults surface as ErrUnavailable and drop the session, so the
// caller reconnects. Replies the service answers with FALSE surface as
// ErrUnauthorized or ErrRejected. Input is validated before anything is sent,
// so common.ErrReservedSeparator and common.ErrInvalidEmail come back without
// a round trip.
package client
