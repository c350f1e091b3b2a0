package peermgr

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/connmgr"
	"github.com/btcsuite/btcd/wire"

	"github.com/kvhnuke/haskoin-node/fn"
)

// knownAddresses is the duplicate-free pool of endpoints discovered but not
// yet dialed. An address enters on discovery and leaves when selected for a
// dial attempt or when it's already represented in the online registry.
type knownAddresses struct {
	mu  sync.Mutex
	set map[string]NetworkAddress
}

func newKnownAddresses() *knownAddresses {
	return &knownAddresses{set: make(map[string]NetworkAddress)}
}

func (k *knownAddresses) add(addrs ...NetworkAddress) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, a := range addrs {
		k.set[a.Endpoint()] = a
	}
}

// sample returns one arbitrary member of the set, if any, without removing
// it -- callers that intend to dial it are expected to call remove
// themselves once they've decided to use it.
func (k *knownAddresses) sample() (NetworkAddress, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, a := range k.set {
		return a, true
	}

	return NetworkAddress{}, false
}

func (k *knownAddresses) remove(a NetworkAddress) {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.set, a.Endpoint())
}

func (k *knownAddresses) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.set)
}

// runDiscovery resolves the static peer list and, if enabled, the network's
// DNS seeds, feeding every resolved endpoint into known. Resolution failures
// are swallowed per C1's "never fatal" contract.
func (m *Manager) runDiscovery(ctx context.Context) {
	for _, s := range m.cfg.StaticPeers {
		addrs := ResolveEndpoints(ctx, s, defaultPortOf(m.cfg.Network), ServiceNodeNetwork)
		m.known.add(addrs...)
	}

	if !m.cfg.Discover {
		return
	}

	connmgr.SeedFromDNS(m.cfg.Network, ServiceNodeNetwork, net.LookupIP,
		func(addrs []*wire.NetAddressV2) {
			out := make([]NetworkAddress, 0, len(addrs))
			for _, a := range addrs {
				legacy := a.ToLegacy()
				out = append(out, NetworkAddress{
					IP:       legacy.IP,
					Port:     legacy.Port,
					Services: legacy.Services,
				})
			}

			m.known.add(out...)
		},
	)
}

// handlePeerAddrs feeds a gossiped address list into known, skipping any
// endpoint already present in the online registry and any address whose IP
// isRoutable rejects.
func (m *Manager) handlePeerAddrs(addrs []NetworkAddress) {
	if !m.cfg.Discover {
		return
	}

	snap := m.reg.snapshot()
	online := make([]string, len(snap))
	for i, p := range snap {
		online[i] = p.Address.Endpoint()
	}

	fresh := fn.Filter(func(a NetworkAddress) bool {
		return isRoutable(a.IP) && !fn.Elem(a.Endpoint(), online)
	}, addrs)

	m.known.add(fresh...)
}

// isRoutable reports whether ip is a plausible public internet address,
// narrowly reusing the filtering judgement connmgr's own address manager
// applies to gossiped entries before trusting them.
func isRoutable(ip net.IP) bool {
	if ip == nil {
		return false
	}

	return !(ip.IsUnspecified() || ip.IsLoopback() || ip.IsMulticast() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast())
}

// defaultPortOf returns params' default port, or 0 if it can't be parsed.
func defaultPortOf(params *chaincfg.Params) uint16 {
	p, err := strconv.ParseUint(params.DefaultPort, 10, 16)
	if err != nil {
		return 0
	}

	return uint16(p)
}
