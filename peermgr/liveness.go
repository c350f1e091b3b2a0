package peermgr

import (
	"context"
	"math/rand"
	"time"

	"github.com/kvhnuke/haskoin-node/fn"
)

// startLivenessTicker launches the per-peer background task that, at
// pseudo-random intervals drawn uniformly from [3T/4, T], asks the manager
// to run checkPeer(mb). It runs until ctx is cancelled (the peer was
// removed) or the supervisor shuts down.
func (m *Manager) startLivenessTicker(ctx context.Context, mb Mailbox) {
	m.sup.launchBackground(ctx, func(ctx context.Context) {
		timer := time.NewTimer(jitteredInterval(m.cfg.Timeout))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-timer.C:
				select {
				case m.mailbox <- CheckPeer{Mailbox: mb}:
				case <-ctx.Done():
					return
				}

				timer.Reset(jitteredInterval(m.cfg.Timeout))
			}
		}
	})
}

// jitteredInterval draws a duration uniformly from [3T/4, T].
func jitteredInterval(t time.Duration) time.Duration {
	lo := t * 3 / 4
	span := t - lo
	if span <= 0 {
		return t
	}

	return lo + time.Duration(rand.Int63n(int64(span)))
}

// checkPeer runs the liveness check for mb, per the component design: skip
// if busy or missing, then the lifetime check unconditionally, then the
// tickle/ping branch. Returns the ErrorKind to kill with, if any.
func (m *Manager) checkPeer(mb Mailbox) fn.Option[ErrorKind] {
	p, ok := m.reg.findByMailbox(mb)
	if !ok {
		return fn.None[ErrorKind]()
	}

	if m.isBusy(mb) {
		return fn.None[ErrorKind]()
	}

	now := clock()

	if !now.Before(p.DisconnectAt) {
		return fn.Some(PeerTooOld)
	}

	if now.Sub(p.TickledAt) <= m.cfg.Timeout {
		return fn.None[ErrorKind]()
	}

	if p.OutstandingPing.IsSome() {
		return fn.Some(PeerTimeout)
	}

	nonce := rand.Uint64()

	m.reg.modify(mb, func(op *OnlinePeer) {
		op.OutstandingPing = fn.Some(OutstandingPing{SentAt: now, Nonce: nonce})
	})

	m.sendPing(mb, nonce)

	return fn.None[ErrorKind]()
}

// handlePong matches an inbound pong against the peer's outstanding ping;
// a matching nonce records a new RTT sample and clears the outstanding
// ping, a mismatch is silently ignored.
func (m *Manager) handlePong(mb Mailbox, nonce uint64) {
	p, ok := m.reg.findByMailbox(mb)
	if !ok {
		return
	}

	if p.OutstandingPing.IsNone() {
		return
	}

	pending := p.OutstandingPing.UnwrapOr(OutstandingPing{})
	if pending.Nonce != nonce {
		return
	}

	rtt := clock().Sub(pending.SentAt)

	m.reg.modify(mb, func(op *OnlinePeer) {
		op.recordPing(rtt)
		op.OutstandingPing = fn.None[OutstandingPing]()
	})

	if p, ok := m.reg.findByMailbox(mb); ok {
		if latest, ok := p.LatestPing(); ok {
			log.Debugf("peer %d rtt=%s median=%s", mb, latest, p.MedianPing())
		}
	}
}

// handleTickle updates TickledAt for mb to now, recording that the peer
// produced some protocol message.
func (m *Manager) handleTickle(mb Mailbox) {
	m.reg.modify(mb, func(op *OnlinePeer) {
		op.TickledAt = clock()
		op.BytesReceived++
	})
}
