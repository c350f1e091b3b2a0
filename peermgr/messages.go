package peermgr

import "github.com/btcsuite/btcd/wire"

// managerMsg is the closed set of messages the manager's single mailbox
// accepts. It is intentionally a concrete type switch rather than an
// instantiation of a generic actor framework: the set is small, fixed, and
// known ahead of time, so a direct switch over these structs is the more
// direct fit (see the design notes for why).
type managerMsg interface {
	isManagerMsg()
}

// ManagerBest sets the best-block height. Expected exactly once, before the
// manager's main loop begins processing any other message.
type ManagerBest struct {
	Height uint32
}

// Connect asks the manager to dial a new outbound peer at addr.
type Connect struct {
	Addr NetworkAddress
}

// PeerVersion reports an inbound version message from peer mb.
type PeerVersion struct {
	Mailbox Mailbox
	Version *wire.MsgVersion
}

// PeerVerAck reports an inbound verack from peer mb.
type PeerVerAck struct {
	Mailbox Mailbox
}

// PeerPing reports an inbound ping carrying nonce n from peer mb.
type PeerPing struct {
	Mailbox Mailbox
	Nonce   uint64
}

// PeerPong reports an inbound pong carrying nonce n from peer mb.
type PeerPong struct {
	Mailbox Mailbox
	Nonce   uint64
}

// PeerAddrs reports a gossiped address list from peer mb.
type PeerAddrs struct {
	Mailbox   Mailbox
	Addresses []NetworkAddress
}

// PeerTickle reports that peer mb produced some protocol message, of any
// kind, resetting its idle accounting.
type PeerTickle struct {
	Mailbox Mailbox
}

// CheckPeer asks the manager to run the liveness check for peer mb.
type CheckPeer struct {
	Mailbox Mailbox
}

// PeerDied reports that the supervisor observed task t exit, optionally with
// an error.
type PeerDied struct {
	Task TaskHandle
	Err  error
}

func (ManagerBest) isManagerMsg() {}
func (Connect) isManagerMsg()     {}
func (PeerVersion) isManagerMsg() {}
func (PeerVerAck) isManagerMsg()  {}
func (PeerPing) isManagerMsg()    {}
func (PeerPong) isManagerMsg()    {}
func (PeerAddrs) isManagerMsg()   {}
func (PeerTickle) isManagerMsg()  {}
func (CheckPeer) isManagerMsg()   {}
func (PeerDied) isManagerMsg()    {}
