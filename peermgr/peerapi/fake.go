package peerapi

import (
	"sync"

	"github.com/btcsuite/btcd/wire"
)

// Sent records a single outbound call the manager made against a Fake
// handle, in call order.
type Sent struct {
	Version *wire.MsgVersion
	VerAck  bool
	Ping    *uint64
	Pong    *uint64
	Killed  error
}

// Fake is an in-memory Handle that records every call instead of touching a
// socket, standing in for the wire-codec collaborator in tests.
type Fake struct {
	mu   sync.Mutex
	sent []Sent
	dead bool
	done chan error
}

// NewFake returns a ready-to-use Fake handle.
func NewFake() *Fake {
	return &Fake{done: make(chan error, 1)}
}

func (f *Fake) SendVersion(v *wire.MsgVersion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{Version: v})
}

func (f *Fake) SendVerAck() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{VerAck: true})
}

func (f *Fake) SendPing(nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{Ping: &nonce})
}

func (f *Fake) SendPong(nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{Pong: &nonce})
}

func (f *Fake) Kill(reason error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dead {
		return
	}

	f.dead = true
	f.sent = append(f.sent, Sent{Killed: reason})
	f.done <- reason
}

func (f *Fake) Done() <-chan error {
	return f.done
}

// History returns a copy of every call recorded so far, in order.
func (f *Fake) History() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Sent, len(f.sent))
	copy(out, f.sent)

	return out
}

// Dead reports whether Kill has been called.
func (f *Fake) Dead() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.dead
}

// VerAckCount returns how many times SendVerAck was called.
func (f *Fake) VerAckCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, s := range f.sent {
		if s.VerAck {
			n++
		}
	}

	return n
}

// LastPing returns the nonce of the most recent SendPing call, if any.
func (f *Fake) LastPing() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Ping != nil {
			return *f.sent[i].Ping, true
		}
	}

	return 0, false
}

// FakeDialer is a Dialer that hands out Fake handles and records every
// endpoint it was asked to dial.
type FakeDialer struct {
	mu      sync.Mutex
	dialed  []string
	handles map[string]*Fake
	err     error
}

// NewFakeDialer returns a ready-to-use FakeDialer.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{handles: make(map[string]*Fake)}
}

// FailWith makes every subsequent Dial call return err.
func (d *FakeDialer) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *FakeDialer) Dial(endpoint string) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialed = append(d.dialed, endpoint)

	if d.err != nil {
		return nil, d.err
	}

	h := NewFake()
	d.handles[endpoint] = h

	return h, nil
}

// Dialed returns every endpoint Dial was called with, in order.
func (d *FakeDialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.dialed))
	copy(out, d.dialed)

	return out
}

// HandleFor returns the Fake handle created for a given endpoint, if any.
func (d *FakeDialer) HandleFor(endpoint string) (*Fake, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.handles[endpoint]

	return h, ok
}
