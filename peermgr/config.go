package peermgr

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/kvhnuke/haskoin-node/peermgr/peerapi"
)

// EventPublisher receives the manager's connect/disconnect lifecycle
// events.
type EventPublisher interface {
	PeerConnected(p *OnlinePeer)
	PeerDisconnected(p *OnlinePeer)
}

// MessagePublisher receives every (peer, message) pair an upstream consumer
// (block-header sync, mempool relay, etc.) might care about. Every inbound
// Version/VerAck/Ping/Pong/Addr the manager itself handles is also handed
// to this publisher, so callers never need to duplicate the manager's own
// wire decoding to observe peer traffic.
type MessagePublisher interface {
	Publish(mailbox Mailbox, msg interface{})
}

// Config is everything the manager needs to start running.
type Config struct {
	// MaxPeers is the target concurrent OnlinePeers count; the connect
	// loop's cap.
	MaxPeers int

	// StaticPeers are host:port strings resolved once at startup.
	StaticPeers []string

	// Discover enables DNS seeds and gossip-learned addresses.
	Discover bool

	// LocalNetAddr is the address we advertise as addr_send in our
	// Version.
	LocalNetAddr NetworkAddress

	// Network carries magic bytes, DNS seeds, and the default port.
	Network *chaincfg.Params

	// Timeout is the idle threshold before pinging, and the basis of the
	// liveness tick period.
	Timeout time.Duration

	// MaxLife upper-bounds a single connection's lifetime, jittered by
	// U[0.75,1.0].
	MaxLife time.Duration

	// UserAgent is advertised in our Version.
	UserAgent string

	// ProtocolVer is the protocol version we advertise (70012 per the
	// wire behaviour contract).
	ProtocolVer uint32

	// Dialer produces outbound connections for a socket endpoint.
	Dialer peerapi.Dialer

	// Events publishes PeerConnected/PeerDisconnected.
	Events EventPublisher

	// Messages publishes (peer, message) pairs to upstream consumers.
	Messages MessagePublisher
}
