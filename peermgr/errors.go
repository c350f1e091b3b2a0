package peermgr

import "fmt"

// ErrorKind enumerates the reasons the manager kills a peer task.
type ErrorKind int

const (
	// NotNetworkPeer means the remote's Version didn't advertise the
	// NODE_NETWORK service bit.
	NotNetworkPeer ErrorKind = iota

	// PeerIsMyself means the remote's Version.Nonce matched one of our
	// own outstanding nonces -- we dialed ourselves.
	PeerIsMyself

	// UnknownPeer means a handshake message (Version or VerAck) arrived
	// for a peer not, or no longer, present in the registry.
	UnknownPeer

	// PeerTimeout means a ping went unanswered past the idle window.
	PeerTimeout

	// PeerTooOld means the connection exceeded its jittered lifetime
	// budget.
	PeerTooOld
)

func (k ErrorKind) String() string {
	switch k {
	case NotNetworkPeer:
		return "not-network-peer"
	case PeerIsMyself:
		return "peer-is-myself"
	case UnknownPeer:
		return "unknown-peer"
	case PeerTimeout:
		return "peer-timeout"
	case PeerTooOld:
		return "peer-too-old"
	default:
		return "unknown"
	}
}

// PeerError is the typed error surfaced when the manager decides to kill a
// peer task.
type PeerError struct {
	Kind    ErrorKind
	Mailbox Mailbox
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("peer %d: %s", e.Mailbox, e.Kind)
}

// Is supports errors.Is comparisons against a bare ErrorKind-tagged sentinel
// built with &PeerError{Kind: k}, ignoring the Mailbox field.
func (e *PeerError) Is(target error) bool {
	other, ok := target.(*PeerError)
	if !ok {
		return false
	}

	return e.Kind == other.Kind
}

func newPeerError(kind ErrorKind, mailbox Mailbox) *PeerError {
	return &PeerError{Kind: kind, Mailbox: mailbox}
}
