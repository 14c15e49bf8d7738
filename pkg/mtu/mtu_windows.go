//go:build windows

package mtu

import (
	"context"
	"net/netip"

	"github.com/tkjaer/ifmtu/internal/iphlp"
)

// Variables for mocking in tests.
var (
	bestLink  = iphlp.Resolve
	localLink = iphlp.ResolveLocal
)

// resolve asks IP Helper for the best interface towards dst. The calls don't
// block on the network, so ctx is only checked up front.
func resolve(ctx context.Context, dst netip.Addr) (Interface, error) {
	l, err := bestLink(dst)
	if err != nil {
		return Interface{}, err
	}
	return newInterface(l.Name, uint64(l.MTU))
}

func resolveLocal(ctx context.Context, addr netip.Addr) (Interface, error) {
	l, err := localLink(addr)
	if err != nil {
		return Interface{}, err
	}
	return newInterface(l.Name, uint64(l.MTU))
}
