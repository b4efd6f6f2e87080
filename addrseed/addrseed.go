// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrseed resolves a DNS seed host into a set of dialable peer
// addresses, per spec.md §4.5's "peer discovery" step of C5: resolve a
// DNS seed, filtering IPv6 results unless explicitly enabled.
package addrseed

import (
	"context"
	"net"
	"strconv"
)

// Lookup resolves host and pairs every returned address with port,
// returning them as dial strings suitable for net.Dial("tcp", ...). IPv6
// results are dropped unless ipv6Enabled is set, per spec.md's config
// option of the same name.
func Lookup(ctx context.Context, resolver *net.Resolver, host string, port int, ipv6Enabled bool) ([]string, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	return dialStrings(addrs, port, ipv6Enabled), nil
}

// dialStrings filters addrs down to IPv4 (plus IPv6 when ipv6Enabled)
// and formats each as a host:port dial string for the given port.
func dialStrings(addrs []net.IPAddr, port int, ipv6Enabled bool) []string {
	portStr := strconv.Itoa(port)
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.IP.To4() == nil && !ipv6Enabled {
			continue
		}
		out = append(out, net.JoinHostPort(a.IP.String(), portStr))
	}
	return out
}
