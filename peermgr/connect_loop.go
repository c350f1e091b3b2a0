package peermgr

import (
	"context"
	"math/rand"
	"time"
)

const (
	connectLoopMinSleep = 100 * time.Millisecond
	connectLoopMaxSleep = 5 * time.Second
)

// startConnectLoop launches the background task that maintains
// connected < max_peers by sampling KnownAddresses and asking the manager to
// Connect. It runs until ctx is cancelled.
func (m *Manager) startConnectLoop(ctx context.Context) {
	m.sup.launchBackground(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			m.connectLoopTick(ctx)

			select {
			case <-time.After(randomSleep(connectLoopMinSleep, connectLoopMaxSleep)):
			case <-ctx.Done():
				return
			}
		}
	})
}

// connectLoopTick implements a single iteration of C6's step list.
func (m *Manager) connectLoopTick(ctx context.Context) {
	n := m.reg.len()
	if n >= m.cfg.MaxPeers {
		return
	}

	if m.known.len() == 0 {
		m.runDiscovery(ctx)
	}

	for {
		addr, ok := m.known.sample()
		if !ok {
			return
		}

		if _, online := m.reg.findByAddress(addr.Endpoint()); online {
			m.known.remove(addr)
			continue
		}

		m.known.remove(addr)

		select {
		case m.mailbox <- Connect{Addr: addr}:
		case <-ctx.Done():
		}

		return
	}
}

func randomSleep(lo, hi time.Duration) time.Duration {
	span := hi - lo
	if span <= 0 {
		return lo
	}

	return lo + time.Duration(rand.Int63n(int64(span)))
}
