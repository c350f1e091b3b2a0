package peermgr

import (
	"context"

	"github.com/kvhnuke/haskoin-node/fn"
)

// supervisor tracks every child task (peer tasks, the connect loop, and
// each peer's liveness ticker) launched by the manager, and reports back to
// the manager's died channel whenever a peer task exits. It wraps
// fn.GoroutineManager's tracked-goroutine launcher, which has no such
// reporting hook of its own.
type supervisor struct {
	gm     *fn.GoroutineManager
	notify chan<- PeerDied
}

func newSupervisor(notify chan<- PeerDied) *supervisor {
	return &supervisor{
		gm:     fn.NewGoroutineManager(),
		notify: notify,
	}
}

// launchPeer starts a peer task under supervision. f must return when ctx is
// cancelled; whatever error it returns (nil on a clean exit) is reported to
// the manager as PeerDied{task, err} once f returns, unless the supervisor
// itself has already begun shutting down.
func (s *supervisor) launchPeer(ctx context.Context, task TaskHandle,
	f func(ctx context.Context) error) bool {

	return s.gm.Go(ctx, func(ctx context.Context) {
		err := f(ctx)

		select {
		case s.notify <- PeerDied{Task: task, Err: err}:
		case <-s.gm.Done():
		}
	})
}

// launchBackground starts a non-peer background task (the connect loop, a
// liveness ticker) under supervision, without a death notification -- only
// peer tasks are tracked by identity for cleanup purposes.
func (s *supervisor) launchBackground(ctx context.Context, f func(ctx context.Context)) bool {
	return s.gm.Go(ctx, f)
}

// stop tears down every tracked task and blocks until they have all
// returned. No new dials may be launched afterward.
func (s *supervisor) stop() {
	s.gm.Stop()
}

// done reports when the supervisor has started shutting down.
func (s *supervisor) done() <-chan struct{} {
	return s.gm.Done()
}
