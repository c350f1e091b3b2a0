package peermgr

import (
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/kvhnuke/haskoin-node/fn"
)

// handshakeResult is what a handshake transition asks the caller (the
// manager's message loop) to do next: possibly kill the peer, possibly send
// it a reply, possibly announce it as newly connected.
type handshakeResult struct {
	kill     fn.Option[ErrorKind]
	sendVA   bool
	announce bool
}

// onVersion applies the inbound-Version transition of the handshake state
// machine (see the component design's five-step rule) and reports what the
// manager must do as a result.
func (m *Manager) onVersion(mb Mailbox, v *wire.MsgVersion) handshakeResult {
	if v.Services&ServiceNodeNetwork == 0 {
		return handshakeResult{kill: fn.Some(NotNetworkPeer)}
	}

	if m.hasOutstandingNonce(uint64(v.Nonce)) {
		return handshakeResult{kill: fn.Some(PeerIsMyself)}
	}

	p, ok := m.reg.findByMailbox(mb)
	if !ok {
		return handshakeResult{kill: fn.Some(UnknownPeer)}
	}

	wasConnected := p.Connected()

	m.reg.modify(mb, func(op *OnlinePeer) {
		op.PeerVersion = fn.Some(v)
		op.ProtocolVersion = negotiateVersion(m.cfg.ProtocolVer, uint32(v.ProtocolVersion))
		op.UserAgent = v.UserAgent
	})

	p, _ = m.reg.findByMailbox(mb)
	nowConnected := p.Connected()

	return handshakeResult{
		sendVA:   true,
		announce: !wasConnected && nowConnected,
	}
}

// onVerAck applies the inbound-VerAck transition.
func (m *Manager) onVerAck(mb Mailbox) handshakeResult {
	p, ok := m.reg.findByMailbox(mb)
	if !ok {
		return handshakeResult{kill: fn.Some(UnknownPeer)}
	}

	wasConnected := p.Connected()

	m.reg.modify(mb, func(op *OnlinePeer) {
		op.VerackReceived = true
	})

	p, _ = m.reg.findByMailbox(mb)
	nowConnected := p.Connected()

	return handshakeResult{
		announce: !wasConnected && nowConnected,
	}
}

// negotiateVersion returns the lower of our advertised protocol version and
// the remote's, the value downstream feature gating (e.g. segwit) must use
// instead of either side's raw advertisement.
func negotiateVersion(ours, theirs uint32) uint32 {
	if ours < theirs {
		return ours
	}

	return theirs
}

// hasOutstandingNonce reports whether n equals the nonce of any currently
// registered peer -- i.e. whether it is one of our own outstanding dial
// nonces, meaning the remote's Version describes ourselves.
func (m *Manager) hasOutstandingNonce(n uint64) bool {
	match := fn.Find(func(p *OnlinePeer) bool {
		return p.Nonce == n
	}, m.reg.snapshot())

	return match.IsSome()
}

// announce publishes PeerConnected for p, honoring the at-most-once
// invariant by checking and setting the Announced flag under the registry
// lock via modify.
func (m *Manager) announce(mb Mailbox) {
	var fired bool

	m.reg.modify(mb, func(op *OnlinePeer) {
		if op.Announced || !op.Connected() {
			return
		}

		op.Announced = true
		fired = true
	})

	if !fired {
		return
	}

	if p, ok := m.reg.findByMailbox(mb); ok {
		m.cfg.Events.PeerConnected(p)
	}
}

// clock is overridable in tests; production code always uses wall-clock
// time.Now.
var clock = time.Now
