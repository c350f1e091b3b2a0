package peermgr

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/wire"
)

// ToHostService splits a configuration string into an optional host and an
// optional service (port), following the bracket rule: a leading '[' takes
// everything up to the matching ']' as the host, with a trailing ":<port>"
// (if any) as the service; otherwise the split is on the first ':'.
//
// An empty input yields two empty optionals. A bare hostname with no ':'
// yields (host, "") with ok=false for the service half.
func ToHostService(s string) (host string, hostOK bool, service string, serviceOK bool) {
	if s == "" {
		return "", false, "", false
	}

	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			// No closing bracket: treat the whole string as host.
			return s, true, "", false
		}

		host = s[1:end]
		rest := s[end+1:]

		if strings.HasPrefix(rest, ":") {
			return host, true, rest[1:], true
		}

		return host, true, "", false
	}

	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return s, true, "", false
	}

	// A colon with nothing before it (no bracket in play) is not treated
	// as an empty host followed by a service: the whole string is kept
	// as the host and the service comes back as present-but-empty.
	if idx == 0 {
		return s, true, "", true
	}

	return s[:idx], true, s[idx+1:], true
}

// ResolveEndpoints resolves a "host:port" style configuration string to zero
// or more NetworkAddress values. A missing service defaults to defaultPort.
// Resolution failure is never fatal: it yields an empty, non-error result.
func ResolveEndpoints(ctx context.Context, s string, defaultPort uint16,
	services wire.ServiceFlag) []NetworkAddress {

	host, hostOK, service, serviceOK := ToHostService(s)
	if !hostOK || host == "" {
		return nil
	}

	port := defaultPort
	if serviceOK {
		if p, err := strconv.ParseUint(service, 10, 16); err == nil {
			port = uint16(p)
		}
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil
	}

	out := make([]NetworkAddress, 0, len(ips))
	for _, ipAddr := range ips {
		out = append(out, NetworkAddress{
			IP:       ipAddr.IP,
			Port:     port,
			Services: services,
		})
	}

	return out
}
