// Package peermgr implements the peer-connection manager of a Bitcoin-family
// P2P node: address discovery, outbound dialing, the version/verack
// handshake, ping/pong liveness tracking, and the supervised lifecycle of
// one task per connected peer.
package peermgr

import (
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/kvhnuke/haskoin-node/fn"
	"github.com/kvhnuke/haskoin-node/queue"
)

// ServiceNodeNetwork is the service bit a full node advertises. It is kept
// as a local alias of wire.SFNodeNetwork so callers outside this module
// don't need to import wire just to build a NetworkAddress.
const ServiceNodeNetwork = wire.SFNodeNetwork

// pingHistorySize is the number of most-recent round-trip samples an
// OnlinePeer retains; the oldest sample is dropped on each insert past this
// cap.
const pingHistorySize = 11

// defaultPingMillis is the RTT assigned to a peer with no recorded pings yet,
// used only for the registry's sort order.
const defaultPingMillis = 60_000

// NetworkAddress is the socket-endpoint-plus-service-bits form the manager
// exchanges during the handshake and gossips during discovery. It is a thin
// stand-in for wire.NetAddress; its Endpoint string, not the struct itself
// (which holds a net.IP slice), is the identity used for set membership.
type NetworkAddress struct {
	IP       net.IP
	Port     uint16
	Services wire.ServiceFlag
}

// Endpoint returns the "host:port" identity used to key the known-address
// set and the online registry's address index.
func (a NetworkAddress) Endpoint() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

func (a NetworkAddress) String() string {
	return a.Endpoint()
}

// ToWire converts to the upstream wire representation used on the actual
// version/addr messages.
func (a NetworkAddress) ToWire(timestamp time.Time) *wire.NetAddress {
	return wire.NewNetAddressTimestamp(timestamp, a.Services, a.IP, a.Port)
}

// Mailbox is the opaque identity of a peer task's inbound handle. It is also
// the equality key for OnlinePeer entries: two entries never share a
// Mailbox.
type Mailbox uint64

// TaskHandle is the opaque identity of a peer task, independent of its
// Mailbox, used to correlate supervisor death notifications back to a
// registry entry.
type TaskHandle uint64

// OutstandingPing is the single in-flight ping a peer may have at a time.
type OutstandingPing struct {
	SentAt time.Time
	Nonce  uint64
}

// OnlinePeer is the manager-side record for a live, or still-handshaking,
// peer. Identity is its Mailbox; Task is a second, independent equality key
// used only to correlate PeerDied notifications.
type OnlinePeer struct {
	Address NetworkAddress
	Mailbox Mailbox
	Task    TaskHandle

	// Nonce is the 64-bit value we sent in our own Version; an inbound
	// Version carrying the same nonce identifies a self-connection.
	Nonce uint64

	VerackReceived bool
	PeerVersion    fn.Option[*wire.MsgVersion]

	// pings retains up to pingHistorySize round-trip samples, oldest
	// overwritten first.
	pings *queue.CircularBuffer[time.Duration]

	OutstandingPing fn.Option[OutstandingPing]

	ConnectTime  time.Time
	TickledAt    time.Time
	DisconnectAt time.Time

	// Announced records whether PeerConnected has already fired for this
	// peer's current lifetime, enforcing the at-most-once invariant
	// across the two possible arrival orders of Version and VerAck.
	Announced bool

	// ProtocolVersion is min(ours, theirs) once negotiated; zero until
	// the remote's Version has arrived.
	ProtocolVersion uint32
	UserAgent       string

	BytesSent     uint64
	BytesReceived uint64
}

// Connected is the derived invariant: true iff both VerackReceived and
// PeerVersion are populated.
func (p *OnlinePeer) Connected() bool {
	return p.VerackReceived && p.PeerVersion.IsSome()
}

// Pings returns the recorded RTT samples, sorted ascending. Takes part in
// the registry's sort order via MedianPing.
func (p *OnlinePeer) Pings() []time.Duration {
	if p.pings == nil {
		return nil
	}

	out := p.pings.List()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// LatestPing returns the most recently recorded RTT sample, in arrival
// order rather than Pings' sorted order, and false if none has been
// recorded yet.
func (p *OnlinePeer) LatestPing() (time.Duration, bool) {
	if p.pings == nil {
		return 0, false
	}

	return p.pings.Latest()
}

// MedianPing returns the median of the recorded RTT samples, or the
// registry's default fallback when no samples have been recorded yet.
func (p *OnlinePeer) MedianPing() time.Duration {
	pings := p.Pings()
	if len(pings) == 0 {
		return defaultPingMillis * time.Millisecond
	}

	return pings[len(pings)/2]
}

// recordPing inserts a new RTT sample into the capped circular history,
// overwriting the oldest sample once pingHistorySize is reached.
func (p *OnlinePeer) recordPing(rtt time.Duration) {
	if p.pings == nil {
		buf, err := queue.NewCircularBuffer[time.Duration](pingHistorySize)
		if err != nil {
			// pingHistorySize is a positive compile-time constant; this
			// cannot fail.
			panic(err)
		}
		p.pings = buf
	}

	p.pings.Add(rtt)
}

