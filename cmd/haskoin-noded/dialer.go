package main

import (
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/kvhnuke/haskoin-node/peermgr/peerapi"
)

// tcpDialer is the production peerapi.Dialer: it opens a real TCP socket and
// hands back a tcpPeer that speaks the wire protocol directly. This is the
// "Peer" collaborator the peer manager treats as out of scope -- the
// manager only ever talks to it through the peerapi.Handle interface.
type tcpDialer struct {
	net *chaincfg.Params
}

func newTCPDialer() *tcpDialer {
	return &tcpDialer{net: &chaincfg.MainNetParams}
}

func (d *tcpDialer) Dial(endpoint string) (peerapi.Handle, error) {
	conn, err := net.DialTimeout("tcp", endpoint, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	p := &tcpPeer{
		conn: conn,
		net:  d.net.Net,
		done: make(chan error, 1),
	}

	go p.readLoop()

	return p, nil
}

// tcpPeer is a minimal wire-protocol I/O loop: enough to carry the
// messages the manager issues (version/verack/ping/pong) and to read and
// discard everything it receives, without performing any content-layer
// validation -- validating message semantics belongs to the block-header
// and mempool consumers this manager treats as out of scope collaborators.
type tcpPeer struct {
	conn net.Conn
	net  wire.BitcoinNet
	pver uint32

	done chan error
}

func (p *tcpPeer) SendVersion(v *wire.MsgVersion) {
	p.pver = uint32(v.ProtocolVersion)
	p.send(v)
}

func (p *tcpPeer) SendVerAck() {
	p.send(wire.NewMsgVerAck())
}

func (p *tcpPeer) SendPing(nonce uint64) {
	p.send(wire.NewMsgPing(nonce))
}

func (p *tcpPeer) SendPong(nonce uint64) {
	p.send(wire.NewMsgPong(nonce))
}

func (p *tcpPeer) Kill(reason error) {
	p.conn.Close()
}

func (p *tcpPeer) Done() <-chan error {
	return p.done
}

func (p *tcpPeer) send(msg wire.Message) {
	pver := p.pver
	if pver == 0 {
		pver = wire.ProtocolVersion
	}

	if err := wire.WriteMessage(p.conn, msg, pver, p.net); err != nil {
		p.fail(err)
	}
}

func (p *tcpPeer) readLoop() {
	pver := p.pver
	if pver == 0 {
		pver = wire.ProtocolVersion
	}

	for {
		if _, _, err := wire.ReadMessage(p.conn, pver, p.net); err != nil {
			p.fail(err)
			return
		}
	}
}

func (p *tcpPeer) fail(err error) {
	p.conn.Close()

	select {
	case p.done <- err:
	default:
	}
}
