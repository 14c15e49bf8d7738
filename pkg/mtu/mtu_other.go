//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package mtu

import (
	"context"
	"net/netip"
)

func resolve(ctx context.Context, dst netip.Addr) (Interface, error) {
	return Interface{}, ErrUnsupported
}

func resolveLocal(ctx context.Context, addr netip.Addr) (Interface, error) {
	return Interface{}, ErrUnsupported
}
