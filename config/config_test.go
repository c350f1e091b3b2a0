package config

import (
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())
}

func TestValidateRejectsNonPositiveFields(t *testing.T) {
	base := DefaultConfig()

	zeroPeers := *base
	zeroPeers.MaxPeers = 0
	require.Error(t, zeroPeers.validate())

	negTimeout := *base
	negTimeout.Timeout = -time.Second
	require.Error(t, negTimeout.validate())

	zeroLife := *base
	zeroLife.MaxLife = 0
	require.Error(t, zeroLife.validate())
}

func TestChainParams(t *testing.T) {
	cases := map[string]*chaincfg.Params{
		"mainnet":  &chaincfg.MainNetParams,
		"":         &chaincfg.MainNetParams,
		"testnet3": &chaincfg.TestNet3Params,
		"testnet":  &chaincfg.TestNet3Params,
		"regtest":  &chaincfg.RegressionNetParams,
		"simnet":   &chaincfg.SimNetParams,
		"MainNet":  &chaincfg.MainNetParams,
	}

	for network, want := range cases {
		cfg := &Config{Network: network}
		got, err := cfg.chainParams()
		require.NoError(t, err)
		require.Same(t, want, got)
	}

	_, err := (&Config{Network: "nonesuch"}).chainParams()
	require.Error(t, err)
}

func TestLocalNetAddressUnconfiguredFallsBackToUnroutable(t *testing.T) {
	cfg := &Config{}
	addr := cfg.localNetAddress(8333)

	require.True(t, addr.IP.Equal(net.IPv4zero))
	require.EqualValues(t, 8333, addr.Port)
}

func TestLocalNetAddressUsesConfiguredLiteralIP(t *testing.T) {
	cfg := &Config{ExternalIP: "203.0.113.7"}
	addr := cfg.localNetAddress(8333)

	require.True(t, addr.IP.Equal(net.ParseIP("203.0.113.7")))
}

func TestToManagerConfigDerivesPortFromNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network = "testnet3"

	mgrCfg, err := cfg.ToManagerConfig()
	require.NoError(t, err)
	require.Same(t, &chaincfg.TestNet3Params, mgrCfg.Network)
	require.Equal(t, cfg.MaxPeers, mgrCfg.MaxPeers)
	require.True(t, mgrCfg.LocalNetAddr.IP.Equal(net.IPv4zero))
	require.EqualValues(t, 18333, mgrCfg.LocalNetAddr.Port)
}

func TestToManagerConfigRejectsUnknownNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network = "nonesuch"

	_, err := cfg.ToManagerConfig()
	require.Error(t, err)
}
