package peermgr

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/kvhnuke/haskoin-node/peermgr/peerapi"
	"github.com/kvhnuke/haskoin-node/plog"
)

var log = plog.NewSubLogger("PEER")

// mailboxBuffer is the manager's own inbound channel depth. A small buffer
// keeps fire-and-forget senders (liveness tickers, the connect loop) from
// stalling on a slow receive without masking backpressure entirely.
const mailboxBuffer = 64

// Manager is the peer-connection manager actor: a single mailbox, single
// consumer goroutine that serializes all registry mutation and dispatches
// inbound messages to the handshake (C3), liveness (C4), discovery (C5),
// and connect-loop (C6) components.
type Manager struct {
	cfg Config

	reg   *registry
	known *knownAddresses
	sup   *supervisor

	mailbox chan managerMsg
	died    chan PeerDied

	bestBlock uint32

	handles   map[Mailbox]peerapi.Handle
	handlesMu sync.Mutex

	nextMailbox uint64
	nextTask    uint64

	startOnce sync.Once
	stopOnce  sync.Once
	runDone   chan struct{}
}

// NewManager constructs a Manager ready to be started with Run. It performs
// no I/O and launches no goroutines until Run is called.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		cfg:     cfg,
		reg:     newRegistry(),
		known:   newKnownAddresses(),
		mailbox: make(chan managerMsg, mailboxBuffer),
		died:    make(chan PeerDied, mailboxBuffer),
		handles: make(map[Mailbox]peerapi.Handle),
		runDone: make(chan struct{}),
	}

	m.sup = newSupervisor(m.died)

	return m
}

// Run starts the manager's main loop: it sets the best block to bestBlock
// (a later ManagerBest message overwrites it), then launches the connect loop
// and processes mailbox messages until ctx is cancelled. Run returns once the
// manager and every supervised task have fully shut down.
func (m *Manager) Run(ctx context.Context, bestBlock uint32) {
	m.startOnce.Do(func() {
		m.bestBlock = bestBlock

		m.startConnectLoop(ctx)

		go m.loop(ctx)
	})

	<-m.runDone
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.runDone)
	defer m.sup.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pd := <-m.died:
			m.handlePeerDied(pd)

		case raw := <-m.mailbox:
			m.dispatch(ctx, raw)
		}
	}
}

// Tell sends msg to the manager's mailbox without waiting for it to be
// processed, mirroring the fire-and-forget Tell semantics of a mailbox
// actor.
func (m *Manager) Tell(msg managerMsg) {
	m.mailbox <- msg
}

// dispatch routes one mailbox message to its handler. Every inbound wire
// message case also republishes itself to cfg.Messages once the manager's
// own handling has run, giving upstream consumers (block sync, mempool
// relay) a look at the same traffic without a second decode.
func (m *Manager) dispatch(ctx context.Context, raw managerMsg) {
	switch msg := raw.(type) {
	case ManagerBest:
		m.bestBlock = msg.Height

	case Connect:
		m.handleConnect(ctx, msg.Addr)

	case PeerVersion:
		m.handlePeerVersion(msg.Mailbox, msg.Version)
		m.cfg.Messages.Publish(msg.Mailbox, msg)

	case PeerVerAck:
		m.handlePeerVerAck(msg.Mailbox)
		m.cfg.Messages.Publish(msg.Mailbox, msg)

	case PeerPing:
		m.sendPong(msg.Mailbox, msg.Nonce)
		m.cfg.Messages.Publish(msg.Mailbox, msg)

	case PeerPong:
		m.handlePong(msg.Mailbox, msg.Nonce)
		m.cfg.Messages.Publish(msg.Mailbox, msg)

	case PeerAddrs:
		m.handlePeerAddrs(msg.Addresses)
		m.cfg.Messages.Publish(msg.Mailbox, msg)

	case PeerTickle:
		m.handleTickle(msg.Mailbox)

	case CheckPeer:
		m.checkPeer(msg.Mailbox).WhenSome(func(kind ErrorKind) {
			m.killPeer(msg.Mailbox, kind)
		})

	case PeerDied:
		m.handlePeerDied(msg)
	}
}

func (m *Manager) handlePeerVersion(mb Mailbox, v *wire.MsgVersion) {
	res := m.onVersion(mb, v)

	res.kill.WhenSome(func(kind ErrorKind) {
		m.killPeer(mb, kind)
	})

	if res.sendVA {
		m.sendVerAck(mb)
	}

	if res.announce {
		m.announce(mb)
	}
}

func (m *Manager) handlePeerVerAck(mb Mailbox) {
	res := m.onVerAck(mb)

	res.kill.WhenSome(func(kind ErrorKind) {
		m.killPeer(mb, kind)
	})

	if res.announce {
		m.announce(mb)
	}
}

// handleConnect implements §4.6's Connect(addr) steps: dedup against the
// registry, allocate identity, build our Version, register, launch under
// the supervisor, and send Version.
func (m *Manager) handleConnect(ctx context.Context, addr NetworkAddress) {
	if _, online := m.reg.findByAddress(addr.Endpoint()); online {
		log.Debugf("dropping connect to already-online peer %s", addr)
		return
	}

	mb := m.allocMailbox()
	task := m.allocTask()
	nonce := rand.Uint64()
	now := clock()

	handle, err := m.cfg.Dialer.Dial(addr.Endpoint())
	if err != nil {
		log.Errorf("dial %s failed: %v", addr, err)
		return
	}

	m.handlesMu.Lock()
	m.handles[mb] = handle
	m.handlesMu.Unlock()

	op := &OnlinePeer{
		Address:      addr,
		Mailbox:      mb,
		Task:         task,
		Nonce:        nonce,
		ConnectTime:  now,
		TickledAt:    now,
		DisconnectAt: now.Add(jitteredLifetime(m.cfg.MaxLife)),
	}

	m.reg.insert(op)

	peerCtx, cancel := context.WithCancel(ctx)

	m.sup.launchPeer(peerCtx, task, func(ctx context.Context) error {
		defer cancel()

		select {
		case err := <-handle.Done():
			return err
		case <-ctx.Done():
			return nil
		}
	})

	m.startLivenessTicker(peerCtx, mb)

	m.sendVersion(mb, addr, nonce)
}

// handlePeerDied implements the PeerDied handler: remove from the registry,
// publish PeerDisconnected if it had been announced, and log.
func (m *Manager) handlePeerDied(pd PeerDied) {
	p, ok := m.reg.findByTask(pd.Task)
	if !ok {
		if pd.Err != nil {
			log.Warnf("unknown task %d died: %v", pd.Task, pd.Err)
		}
		return
	}

	m.reg.remove(p.Mailbox)

	m.handlesMu.Lock()
	delete(m.handles, p.Mailbox)
	m.handlesMu.Unlock()

	if pd.Err != nil {
		log.Warnf("peer %d died: %v", p.Mailbox, pd.Err)
	}

	if p.Announced {
		m.cfg.Events.PeerDisconnected(p)
	}
}

// killPeer tells the peer's handle to disconnect; the task's own exit will
// arrive as PeerDied and drive the actual registry cleanup.
func (m *Manager) killPeer(mb Mailbox, kind ErrorKind) {
	h, ok := m.handleFor(mb)
	if !ok {
		return
	}

	h.Kill(newPeerError(kind, mb))
}

func (m *Manager) handleFor(mb Mailbox) (peerapi.Handle, bool) {
	m.handlesMu.Lock()
	defer m.handlesMu.Unlock()

	h, ok := m.handles[mb]

	return h, ok
}

// isBusy reports whether the peer task for mb is still performing initial
// I/O. This manager has no separate "busy" signal beyond Connected(): a
// dialed-but-not-yet-connected peer is considered busy for up to Timeout
// after its ConnectTime, so its liveness check doesn't race the handshake.
func (m *Manager) isBusy(mb Mailbox) bool {
	p, ok := m.reg.findByMailbox(mb)
	if !ok {
		return false
	}

	return !p.Connected() && clock().Sub(p.ConnectTime) < m.cfg.Timeout
}

func (m *Manager) sendVersion(mb Mailbox, addr NetworkAddress, nonce uint64) {
	h, ok := m.handleFor(mb)
	if !ok {
		return
	}

	now := time.Now()

	v := wire.NewMsgVersion(
		m.cfg.LocalNetAddr.ToWire(now),
		addr.ToWire(now),
		nonce,
		int32(m.bestBlock),
	)
	v.UserAgent = m.cfg.UserAgent
	v.Services = m.cfg.LocalNetAddr.Services
	v.ProtocolVersion = int32(m.cfg.ProtocolVer)
	v.DisableRelayTx = false

	h.SendVersion(v)
	m.reg.modify(mb, func(op *OnlinePeer) { op.BytesSent++ })
}

func (m *Manager) sendVerAck(mb Mailbox) {
	if h, ok := m.handleFor(mb); ok {
		h.SendVerAck()
		m.reg.modify(mb, func(op *OnlinePeer) { op.BytesSent++ })
	}
}

func (m *Manager) sendPing(mb Mailbox, nonce uint64) {
	if h, ok := m.handleFor(mb); ok {
		h.SendPing(nonce)
		m.reg.modify(mb, func(op *OnlinePeer) { op.BytesSent++ })
	}
}

func (m *Manager) sendPong(mb Mailbox, nonce uint64) {
	if h, ok := m.handleFor(mb); ok {
		h.SendPong(nonce)
		m.reg.modify(mb, func(op *OnlinePeer) { op.BytesSent++ })
	}
}

func (m *Manager) allocMailbox() Mailbox {
	m.nextMailbox++
	return Mailbox(m.nextMailbox)
}

func (m *Manager) allocTask() TaskHandle {
	m.nextTask++
	return TaskHandle(m.nextTask)
}

// jitteredLifetime draws max_life * U[0.75,1.0].
func jitteredLifetime(maxLife time.Duration) time.Duration {
	jitter := 0.75 + rand.Float64()*0.25
	return time.Duration(float64(maxLife) * jitter)
}

// GetPeers returns every currently-connected peer, in the registry's sorted
// view.
func (m *Manager) GetPeers() []*OnlinePeer {
	return m.reg.connectedPeers()
}

// GetOnlinePeer returns the registry entry for mb, connected or not.
func (m *Manager) GetOnlinePeer(mb Mailbox) (*OnlinePeer, bool) {
	return m.reg.findByMailbox(mb)
}
