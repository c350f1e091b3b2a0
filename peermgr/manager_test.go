package peermgr

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/kvhnuke/haskoin-node/fn"
	"github.com/kvhnuke/haskoin-node/peermgr/peerapi"
)

type recordingEvents struct {
	connected    []Mailbox
	disconnected []Mailbox
}

func (e *recordingEvents) PeerConnected(p *OnlinePeer)    { e.connected = append(e.connected, p.Mailbox) }
func (e *recordingEvents) PeerDisconnected(p *OnlinePeer) { e.disconnected = append(e.disconnected, p.Mailbox) }

type discardMessages struct{}

func (discardMessages) Publish(Mailbox, interface{}) {}

type recordingMessages struct {
	published []interface{}
}

func (r *recordingMessages) Publish(_ Mailbox, msg interface{}) {
	r.published = append(r.published, msg)
}

func testManager(t *testing.T, ev *recordingEvents) *Manager {
	t.Helper()

	m := NewManager(Config{
		MaxPeers:    10,
		Timeout:     time.Second,
		MaxLife:     time.Hour,
		ProtocolVer: 70012,
		Dialer:      peerapi.NewFakeDialer(),
		Events:      ev,
		Messages:    discardMessages{},
	})

	return m
}

func registerTestPeer(m *Manager, mb Mailbox, nonce uint64, fake *peerapi.Fake) *OnlinePeer {
	now := clock()

	op := &OnlinePeer{
		Address:      NetworkAddress{IP: net.IPv4(10, 0, 0, byte(mb)), Port: 8333},
		Mailbox:      mb,
		Task:         TaskHandle(mb),
		Nonce:        nonce,
		ConnectTime:  now.Add(-time.Hour),
		TickledAt:    now,
		DisconnectAt: now.Add(time.Hour),
	}
	m.reg.insert(op)

	m.handlesMu.Lock()
	m.handles[mb] = fake
	m.handlesMu.Unlock()

	return op
}

// Scenario 1: handshake, version first.
func TestHandshakeVersionFirst(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	v := &wire.MsgVersion{Services: ServiceNodeNetwork, Nonce: 0xBBBB, ProtocolVersion: 70015}
	m.handlePeerVersion(1, v)

	require.Equal(t, 1, fake.VerAckCount())
	require.Empty(t, ev.connected, "must not announce before verack")

	m.handlePeerVerAck(1)

	require.Equal(t, []Mailbox{1}, ev.connected)
}

// Scenario 2: handshake, verack first.
func TestHandshakeVerAckFirst(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	m.handlePeerVerAck(1)
	require.Empty(t, ev.connected)

	v := &wire.MsgVersion{Services: ServiceNodeNetwork, Nonce: 0xBBBB, ProtocolVersion: 70015}
	m.handlePeerVersion(1, v)

	require.Equal(t, []Mailbox{1}, ev.connected, "must fire exactly once, only after both messages")
}

func TestHandshakeAnnouncesAtMostOnce(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	v := &wire.MsgVersion{Services: ServiceNodeNetwork, Nonce: 0xBBBB, ProtocolVersion: 70015}
	m.handlePeerVersion(1, v)
	m.handlePeerVerAck(1)
	m.handlePeerVerAck(1)

	require.Len(t, ev.connected, 1)
}

// Scenario 3: self-connect rejection.
func TestSelfConnectRejection(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0x1234, fake)

	v := &wire.MsgVersion{Services: ServiceNodeNetwork, Nonce: 0x1234, ProtocolVersion: 70015}
	m.handlePeerVersion(1, v)

	require.Empty(t, ev.connected)
	require.True(t, fake.Dead())

	hist := fake.History()
	require.NotEmpty(t, hist)
	last := hist[len(hist)-1]
	require.Error(t, last.Killed)

	perr, ok := last.Killed.(*PeerError)
	require.True(t, ok)
	require.Equal(t, PeerIsMyself, perr.Kind)
}

func TestNotNetworkPeerRejection(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	v := &wire.MsgVersion{Services: 0, Nonce: 0xBBBB, ProtocolVersion: 70015}
	m.handlePeerVersion(1, v)

	require.True(t, fake.Dead())
	perr := fake.History()[len(fake.History())-1].Killed.(*PeerError)
	require.Equal(t, NotNetworkPeer, perr.Kind)
}

// Scenario 4: ping timeout.
func TestPingTimeout(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	m.cfg.Timeout = time.Second
	fake := peerapi.NewFake()

	t0 := time.Now()
	clock = func() time.Time { return t0 }
	defer func() { clock = time.Now }()

	op := registerTestPeer(m, 1, 0xAA, fake)
	op.TickledAt = t0
	op.DisconnectAt = t0.Add(time.Hour)
	op.ConnectTime = t0.Add(-time.Hour)

	clock = func() time.Time { return t0.Add(1500 * time.Millisecond) }
	kind := m.checkPeer(1)
	require.True(t, kind.IsNone())
	nonce, ok := fake.LastPing()
	require.True(t, ok)
	_ = nonce

	clock = func() time.Time { return t0.Add(3 * time.Second) }
	kind = m.checkPeer(1)
	require.True(t, kind.IsSome())
	kind.WhenSome(func(k ErrorKind) { require.Equal(t, PeerTimeout, k) })
}

// Scenario 5: lifetime expiry.
func TestLifetimeExpiry(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	m.cfg.Timeout = 100 * time.Second
	fake := peerapi.NewFake()

	t0 := time.Now()
	op := registerTestPeer(m, 1, 0xAA, fake)
	op.ConnectTime = t0.Add(-time.Hour)
	op.TickledAt = t0
	op.DisconnectAt = t0.Add(9 * time.Second)

	clock = func() time.Time { return t0.Add(10 * time.Second) }
	defer func() { clock = time.Now }()

	kind := m.checkPeer(1)
	require.True(t, kind.IsSome())
	kind.WhenSome(func(k ErrorKind) { require.Equal(t, PeerTooOld, k) })
}

// Pong matching law: matching nonce records RTT, mismatched nonce is a
// no-op.
func TestPongMatchingLaw(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()

	registerTestPeer(m, 1, 0xAA, fake)
	m.reg.modify(1, func(p *OnlinePeer) {
		p.OutstandingPing = fn.Some(OutstandingPing{SentAt: clock(), Nonce: 0x42})
	})

	m.handlePong(1, 0x99)
	p, _ := m.reg.findByMailbox(1)
	require.True(t, p.OutstandingPing.IsSome(), "mismatched nonce must be a no-op")
	require.Empty(t, p.Pings())

	m.handlePong(1, 0x42)
	p, _ = m.reg.findByMailbox(1)
	require.True(t, p.OutstandingPing.IsNone())
	require.Len(t, p.Pings(), 1)
}

func TestInboundPingAlwaysProducesOnePong(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	m.dispatch(context.Background(), PeerPing{Mailbox: 1, Nonce: 0x77})

	require.Len(t, fake.History(), 1)
	nonce, ok := fake.History()[0], true
	require.True(t, ok)
	require.NotNil(t, nonce.Pong)
	require.Equal(t, uint64(0x77), *nonce.Pong)
}

// TestSendHelpersBumpBytesSent checks that every outbound send the manager
// issues on a peer's behalf is reflected in that peer's BytesSent counter.
func TestSendHelpersBumpBytesSent(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	addr := NetworkAddress{IP: net.IPv4(10, 0, 0, 9), Port: 8333}

	m.sendVersion(1, addr, 0x1)
	m.sendVerAck(1)
	m.sendPing(1, 0x2)
	m.sendPong(1, 0x3)

	p, ok := m.reg.findByMailbox(1)
	require.True(t, ok)
	require.EqualValues(t, 4, p.BytesSent)
}

// TestDispatchPublishesInboundWireTraffic checks that every inbound wire
// message case hands itself to cfg.Messages in addition to whatever the
// manager's own handler does with it -- the upstream-relay responsibility
// Config.Messages exists for.
func TestDispatchPublishesInboundWireTraffic(t *testing.T) {
	ev := &recordingEvents{}
	msgs := &recordingMessages{}

	m := NewManager(Config{
		MaxPeers:    10,
		Timeout:     time.Second,
		MaxLife:     time.Hour,
		ProtocolVer: 70012,
		Dialer:      peerapi.NewFakeDialer(),
		Events:      ev,
		Messages:    msgs,
	})

	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	ctx := context.Background()

	version := &wire.MsgVersion{Services: ServiceNodeNetwork, Nonce: 0xBEEF, ProtocolVersion: 70015}
	m.dispatch(ctx, PeerVersion{Mailbox: 1, Version: version})
	m.dispatch(ctx, PeerVerAck{Mailbox: 1})
	m.dispatch(ctx, PeerPing{Mailbox: 1, Nonce: 0x11})
	m.dispatch(ctx, PeerPong{Mailbox: 1, Nonce: 0x22})
	m.dispatch(ctx, PeerAddrs{Mailbox: 1, Addresses: nil})

	require.Equal(t, []interface{}{
		PeerVersion{Mailbox: 1, Version: version},
		PeerVerAck{Mailbox: 1},
		PeerPing{Mailbox: 1, Nonce: 0x11},
		PeerPong{Mailbox: 1, Nonce: 0x22},
		PeerAddrs{Mailbox: 1, Addresses: nil},
	}, msgs.published)
}
