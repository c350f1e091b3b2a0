package fn

import (
	"context"
	"sync"
	"sync/atomic"
)

// GoroutineManager launches goroutines that run until either the context
// passed to Go expires or the manager itself is stopped. Stop blocks until
// every goroutine it launched has returned. The peer manager's supervisor
// wraps one instance of this to track every peer task, liveness ticker, and
// the connect loop under a single shutdown point.
type GoroutineManager struct {
	// id hands out a unique key for each in-flight goroutine's cancel
	// func.
	id atomic.Uint32

	// cancelFns maps a goroutine's id to the cancel func of the context
	// it was launched with. Guarded by mu.
	cancelFns map[uint32]context.CancelFunc

	mu sync.Mutex

	stopped sync.Once
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewGoroutineManager constructs an empty GoroutineManager.
func NewGoroutineManager() *GoroutineManager {
	return &GoroutineManager{
		cancelFns: make(map[uint32]context.CancelFunc),
		quit:      make(chan struct{}),
	}
}

func (g *GoroutineManager) addCancelFn(cancel context.CancelFunc) uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.id.Add(1)
	g.cancelFns[id] = cancel

	return id
}

func (g *GoroutineManager) cancel(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelUnsafe(id)
}

// cancelUnsafe cancels the goroutine's context without acquiring mu; callers
// must already hold it.
func (g *GoroutineManager) cancelUnsafe(id uint32) {
	cancel, ok := g.cancelFns[id]
	if !ok {
		return
	}

	cancel()

	delete(g.cancelFns, id)
}

// Go attempts to launch f in its own goroutine, with a context derived from
// ctx. It reports false, without launching anything, if ctx has already
// expired or Stop has already been called -- the two ways a supervised task
// (a peer's liveness ticker, say) can lose the race against shutdown. f must
// return once its context is cancelled.
func (g *GoroutineManager) Go(ctx context.Context,
	f func(ctx context.Context)) bool {

	// Derive a cancellable context from the passed context and store its
	// cancel function in the manager. The context will be cancelled when
	// either the parent context is cancelled or the quit channel is
	// closed, which will call the stored cancel function.
	ctx, cancel := context.WithCancel(ctx)
	id := g.addCancelFn(cancel)

	// wg.Add(1) and wg.Wait() racing while the counter is 0 is undefined
	// and gets flagged under -race, so both are serialized behind mu: if
	// Stop wins the race it closes quit first, which we observe below and
	// bail out before ever calling wg.Add; if Go wins, Stop blocks on mu
	// until after wg.Add(1) has run.
	g.mu.Lock()
	defer g.mu.Unlock()

	if ctx.Err() != nil {
		g.cancelUnsafe(id)

		return false
	}

	select {
	case <-g.quit:
		g.cancelUnsafe(id)

		return false
	default:
	}

	g.wg.Add(1)
	go func() {
		defer func() {
			g.cancel(id)
			g.wg.Done()
		}()

		f(ctx)
	}()

	return true
}

// Stop cancels every launched goroutine's context and blocks until all of
// them have returned. Further calls to Go after Stop always report false.
// Idempotent: only the first call does anything.
func (g *GoroutineManager) Stop() {
	g.stopped.Do(func() {
		g.mu.Lock()
		close(g.quit)
		for _, cancel := range g.cancelFns {
			cancel()
		}
		g.mu.Unlock()

		// Safe even though it's outside mu: by the time any racing Go
		// call observes quit closed, it has already decided not to
		// call wg.Add, so there's no pending Add this Wait could miss.
		g.wg.Wait()
	})
}

// Done reports, via channel closure, that Stop has begun -- not necessarily
// that it has finished waiting for every goroutine to exit.
func (g *GoroutineManager) Done() <-chan struct{} {
	return g.quit
}
