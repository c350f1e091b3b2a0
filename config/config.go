// Package config parses the process-level configuration for a haskoin-noded
// instance, the same way the reference node daemon's own config.go loads a
// struct tagged for both a config file and the command line.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	flags "github.com/jessevdk/go-flags"

	"github.com/kvhnuke/haskoin-node/peermgr"
)

const (
	defaultMaxPeers   = 125
	defaultTimeout    = 2 * time.Minute
	defaultMaxLife    = 24 * time.Hour
	defaultLogLevel   = "info"
	defaultUserAgent  = "/haskoin-noded:0.1.0/"
	defaultNetMagic   = "mainnet"
	defaultProtocolV  = 70012
	defaultDiscEnable = true
)

// Config is the top-level set of fields a caller must supply to start the
// peer manager. Fields map onto peermgr.Config one-for-one except where
// noted; the split exists so command-line/INI parsing stays out of peermgr.
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Accepted but not acted on: no version information is printed"`

	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file (accepted but not read: options come from the command line only)"`

	Network string `long:"network" description:"Network to connect to {mainnet, testnet3, regtest, simnet}"`

	MaxPeers int `long:"maxpeers" description:"Target number of outbound peer connections to maintain"`

	StaticPeers []string `long:"addpeer" description:"Add a peer to connect with at startup (host:port)"`

	Discover bool `long:"discover" description:"Enable DNS-seed and gossip-based peer discovery"`

	ExternalIP string `long:"externalip" description:"The local address advertised to peers in our version message"`

	Timeout time.Duration `long:"peertimeout" description:"Idle threshold before a peer is pinged; also the liveness check period"`

	MaxLife time.Duration `long:"maxlife" description:"Upper bound on a single peer connection's lifetime"`

	UserAgent string `long:"useragent" description:"User agent string advertised in our version message"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level name {trace, debug, info, warn, error, critical} (accepted but not applied: loggers stay at info)"`

	LogDir string `long:"logdir" description:"Log directory (accepted but not used: log output goes to standard output)"`
}

// DefaultConfig returns a Config populated with the same defaults the
// reference daemon ships in its own config.go.
func DefaultConfig() *Config {
	return &Config{
		Network:    defaultNetMagic,
		MaxPeers:   defaultMaxPeers,
		Discover:   defaultDiscEnable,
		Timeout:    defaultTimeout,
		MaxLife:    defaultMaxLife,
		UserAgent:  defaultUserAgent,
		DebugLevel: defaultLogLevel,
	}
}

// LoadConfig parses command-line arguments over the defaults and validates
// the result, mirroring the two-pass (defaults, then flags.Parse) shape of
// the reference daemon's own LoadConfig.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxPeers <= 0 {
		return fmt.Errorf("maxpeers must be positive, got %d", c.MaxPeers)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("peertimeout must be positive, got %s", c.Timeout)
	}

	if c.MaxLife <= 0 {
		return fmt.Errorf("maxlife must be positive, got %s", c.MaxLife)
	}

	return nil
}

// chainParams resolves the configured network name to upstream chain
// parameters, the same lookup the reference daemon performs against
// chaincfg's published network descriptors.
func (c *Config) chainParams() (*chaincfg.Params, error) {
	switch strings.ToLower(c.Network) {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", c.Network)
	}
}

// localNetAddress builds the NetworkAddress we advertise as addr_send,
// falling back to an unroutable zero address when no external IP was
// configured -- resolution failure here is never fatal, matching C1's
// "never fatal" contract.
func (c *Config) localNetAddress(port uint16) peermgr.NetworkAddress {
	host := c.ExternalIP
	if host == "" {
		return peermgr.NetworkAddress{
			IP:       net.IPv4zero,
			Port:     port,
			Services: peermgr.ServiceNodeNetwork,
		}
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return peermgr.NetworkAddress{
				IP:       net.IPv4zero,
				Port:     port,
				Services: peermgr.ServiceNodeNetwork,
			}
		}
		ip = ips[0]
	}

	return peermgr.NetworkAddress{
		IP:       ip,
		Port:     port,
		Services: peermgr.ServiceNodeNetwork,
	}
}

// ToManagerConfig translates the parsed process configuration into the
// peermgr.Config the manager actor is constructed with.
func (c *Config) ToManagerConfig() (peermgr.Config, error) {
	params, err := c.chainParams()
	if err != nil {
		return peermgr.Config{}, err
	}

	port, err := strconv.ParseUint(params.DefaultPort, 10, 16)
	if err != nil {
		return peermgr.Config{}, fmt.Errorf("invalid default port %q for network %q: %w",
			params.DefaultPort, c.Network, err)
	}

	return peermgr.Config{
		MaxPeers:     c.MaxPeers,
		StaticPeers:  c.StaticPeers,
		Discover:     c.Discover,
		LocalNetAddr: c.localNetAddress(uint16(port)),
		Network:      params,
		Timeout:      c.Timeout,
		MaxLife:      c.MaxLife,
		UserAgent:    c.UserAgent,
		ProtocolVer:  defaultProtocolV,
	}, nil
}

// Exit prints the flags help text and terminates, matching how the reference
// daemon's main() reacts to ErrHelp from the flags package.
func Exit(err error) {
	if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
		os.Exit(0)
	}

	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
