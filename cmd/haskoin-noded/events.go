package main

import "github.com/kvhnuke/haskoin-node/peermgr"

// loggingEvents is the production EventPublisher: it simply logs connect and
// disconnect transitions. A real node would instead notify its sync
// subsystem, which is an out-of-scope collaborator here.
type loggingEvents struct{}

func (loggingEvents) PeerConnected(p *peermgr.OnlinePeer) {
	log.Infof("peer connected: %s (%s)", p.Address, p.UserAgent)
}

func (loggingEvents) PeerDisconnected(p *peermgr.OnlinePeer) {
	log.Infof("peer disconnected: %s", p.Address)
}

// discardMessages is the production MessagePublisher placeholder: upstream
// consumers (block-header sync, mempool relay) are out of scope for this
// repository, so messages are simply dropped.
type discardMessages struct{}

func (discardMessages) Publish(mailbox peermgr.Mailbox, msg interface{}) {}
