package peermgr

import (
	"net"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/kvhnuke/haskoin-node/peermgr/peerapi"
)

func TestKnownAddressesAddSampleRemove(t *testing.T) {
	k := newKnownAddresses()
	require.Equal(t, 0, k.len())

	a := NetworkAddress{IP: net.IPv4(1, 2, 3, 4), Port: 8333}
	k.add(a)
	require.Equal(t, 1, k.len())

	got, ok := k.sample()
	require.True(t, ok)
	require.Equal(t, a.Endpoint(), got.Endpoint())

	k.remove(a)
	require.Equal(t, 0, k.len())
}

func TestKnownAddressesAddDedups(t *testing.T) {
	k := newKnownAddresses()

	a := NetworkAddress{IP: net.IPv4(1, 2, 3, 4), Port: 8333}
	k.add(a, a, a)
	require.Equal(t, 1, k.len())
}

func TestHandlePeerAddrsSkipsUnroutable(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	m.cfg.Discover = true

	addrs := []NetworkAddress{
		{IP: net.IPv4(127, 0, 0, 1), Port: 8333},   // loopback
		{IP: net.IPv4(10, 0, 0, 1), Port: 8333},    // not special-cased, routable per isRoutable
		{IP: net.IPv4(224, 0, 0, 1), Port: 8333},   // multicast
		{IP: net.IPv4(0, 0, 0, 0), Port: 8333},     // unspecified
	}

	m.handlePeerAddrs(addrs)

	require.Equal(t, 1, m.known.len())
	got, ok := m.known.sample()
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:8333", got.Endpoint())
}

func TestHandlePeerAddrsSkipsAlreadyOnline(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	m.cfg.Discover = true

	fake := peerapi.NewFake()
	registerTestPeer(m, 1, 0xAA, fake)

	p, _ := m.reg.findByMailbox(1)
	m.handlePeerAddrs([]NetworkAddress{p.Address})

	require.Equal(t, 0, m.known.len(), "an address already in the online registry must not be added to known")
}

func TestHandlePeerAddrsNoopWhenDiscoveryDisabled(t *testing.T) {
	ev := &recordingEvents{}
	m := testManager(t, ev)
	m.cfg.Discover = false

	m.handlePeerAddrs([]NetworkAddress{{IP: net.IPv4(8, 8, 8, 8), Port: 8333}})

	require.Equal(t, 0, m.known.len())
}

func TestIsRoutable(t *testing.T) {
	require.True(t, isRoutable(net.IPv4(8, 8, 8, 8)))
	require.False(t, isRoutable(net.IPv4(127, 0, 0, 1)))
	require.False(t, isRoutable(net.IPv4(0, 0, 0, 0)))
	require.False(t, isRoutable(net.IPv4(224, 0, 0, 1)))
	require.False(t, isRoutable(nil))
}

func TestDefaultPortOf(t *testing.T) {
	require.Equal(t, uint16(8333), defaultPortOf(&chaincfg.MainNetParams))
}
