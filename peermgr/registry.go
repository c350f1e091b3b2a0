package peermgr

import (
	"sort"
	"sync"

	"github.com/kvhnuke/haskoin-node/fn"
)

// registry is the transactional, in-memory store of OnlinePeer entries. All
// operations take the single lock for their whole critical section and
// never block on I/O or a channel send while holding it, matching the
// concurrency model's "no locks held across suspension points" rule.
type registry struct {
	mu sync.Mutex

	peers []*OnlinePeer

	byMailbox map[Mailbox]*OnlinePeer
	byTask    map[TaskHandle]*OnlinePeer
	byAddr    map[string]*OnlinePeer
}

func newRegistry() *registry {
	return &registry{
		byMailbox: make(map[Mailbox]*OnlinePeer),
		byTask:    make(map[TaskHandle]*OnlinePeer),
		byAddr:    make(map[string]*OnlinePeer),
	}
}

// findByMailbox returns the entry with the given mailbox, if any.
func (r *registry) findByMailbox(m Mailbox) (*OnlinePeer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byMailbox[m]

	return p, ok
}

// findByTask returns the entry with the given task handle, if any.
func (r *registry) findByTask(t TaskHandle) (*OnlinePeer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byTask[t]

	return p, ok
}

// findByAddress returns the entry with the given address, if any.
func (r *registry) findByAddress(addr string) (*OnlinePeer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byAddr[addr]

	return p, ok
}

// insert adds op, replacing any existing entry that shares its mailbox, then
// re-sorts and deduplicates the stored view.
func (r *registry) insert(op *OnlinePeer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(op.Mailbox)

	r.peers = append(r.peers, op)
	r.byMailbox[op.Mailbox] = op
	r.byTask[op.Task] = op
	r.byAddr[op.Address.Endpoint()] = op

	r.resortLocked()
}

// modify applies f to the entry with mailbox m and reinserts it, preserving
// the sort/dedup view invariant. It is a no-op if the entry is absent.
func (r *registry) modify(m Mailbox, f func(*OnlinePeer)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byMailbox[m]
	if !ok {
		return
	}

	f(p)

	r.resortLocked()
}

// remove deletes every entry with the given mailbox (at most one, by
// invariant 1).
func (r *registry) remove(m Mailbox) (*OnlinePeer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byMailbox[m]
	if !ok {
		return nil, false
	}

	r.removeLocked(m)

	return p, true
}

func (r *registry) removeLocked(m Mailbox) {
	p, ok := r.byMailbox[m]
	if !ok {
		return
	}

	delete(r.byMailbox, m)
	delete(r.byTask, p.Task)
	delete(r.byAddr, p.Address.Endpoint())

	for i, existing := range r.peers {
		if existing.Mailbox == m {
			r.peers = append(r.peers[:i], r.peers[i+1:]...)
			break
		}
	}
}

// resortLocked re-sorts the stored view ascending by median ping, and
// deduplicates by mailbox in case of concurrent inserts racing on the same
// identity (insert already removes the old entry first, so this is a
// defensive no-op in practice).
func (r *registry) resortLocked() {
	seen := make(map[Mailbox]bool, len(r.peers))
	deduped := r.peers[:0]

	for _, p := range r.peers {
		if seen[p.Mailbox] {
			continue
		}

		seen[p.Mailbox] = true
		deduped = append(deduped, p)
	}

	r.peers = deduped

	sort.SliceStable(r.peers, func(i, j int) bool {
		return r.peers[i].MedianPing() < r.peers[j].MedianPing()
	})
}

// snapshot returns a copy of the stored view in its current sorted order.
func (r *registry) snapshot() []*OnlinePeer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*OnlinePeer, len(r.peers))
	copy(out, r.peers)

	return out
}

// connectedPeers returns only the entries whose Connected() is true, in
// sorted order.
func (r *registry) connectedPeers() []*OnlinePeer {
	return fn.Filter(func(p *OnlinePeer) bool {
		return p.Connected()
	}, r.snapshot())
}

// len returns the number of entries currently registered, connected or not.
func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.peers)
}
