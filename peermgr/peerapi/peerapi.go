// Package peerapi defines the contract between the peer manager and the
// wire-codec/per-peer I/O loop ("Peer" task) that the manager dials against
// but does not itself implement. Production code wires a real socket-backed
// implementation; tests use the in-memory Fake in this package.
package peerapi

import "github.com/btcsuite/btcd/wire"

// Handle is the outbound half of a peer task: the set of sends the manager
// may issue. It must never block the manager's own mailbox loop, so
// implementations are expected to buffer or drop rather than apply
// backpressure to the caller.
type Handle interface {
	// SendVersion transmits our outbound version message.
	SendVersion(v *wire.MsgVersion)

	// SendVerAck transmits a verack in response to the remote's version.
	SendVerAck()

	// SendPing transmits a ping carrying the given nonce.
	SendPing(nonce uint64)

	// SendPong transmits a pong carrying the given nonce, in response to
	// an inbound ping.
	SendPong(nonce uint64)

	// Kill terminates the underlying connection and task. The manager
	// calls this once it has decided a peer must be disconnected; the
	// task's eventual exit is reported back through the supervisor as a
	// death notification, not through this call's return.
	Kill(reason error)

	// Done returns a channel on which the task's exit error is delivered
	// once the underlying I/O loop has stopped (after Kill, the Fake
	// delivers the kill reason). The manager's supervisor blocks on this
	// to learn when a peer task has died.
	Done() <-chan error
}

// Dialer produces a Handle for a freshly-launched outbound connection. The
// manager calls Dial once per accepted Connect request and then watches the
// returned Handle's Done channel from a supervised task, so its death is
// reported.
type Dialer interface {
	Dial(endpoint string) (Handle, error)
}
