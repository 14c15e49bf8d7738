// Package mtu reports which local network interface the operating system
// would use to reach a destination, and that interface's MTU.
//
// Every call asks the kernel afresh over a socket of its own: netlink on
// Linux, a routing socket on Darwin and the BSDs, and the IP Helper API on
// Windows. Nothing is cached.
package mtu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/tkjaer/ifmtu/internal/wire"
)

// DefaultTimeout bounds the wait for a kernel reply when the context carries
// no deadline of its own.
var DefaultTimeout = 2 * time.Second

var (
	// ErrNotFound is returned when the kernel's answer can't be used: the
	// reply was malformed or truncated, lacked the interface or its MTU, or
	// never arrived.
	ErrNotFound = wire.ErrNotFound

	// ErrFamilyMismatch is returned by Lookup, inside a *net.OpError, when
	// the local and remote addresses are of different families.
	ErrFamilyMismatch = errors.New("local and remote address families differ")

	// ErrUnsupported is returned on platforms without a resolver.
	ErrUnsupported = errors.New("interface lookup not supported on this platform")

	errInvalidAddr = errors.New("invalid address")
)

// Interface is the outgoing interface towards a destination.
type Interface struct {
	Name string
	// MTU may exceed the largest IP packet. Windows reports loopback as 4294967295.
	MTU uint
}

// Get returns the interface and MTU the operating system would use to send
// packets to dst.
func Get(dst netip.Addr) (Interface, error) {
	return GetContext(context.Background(), dst)
}

// GetContext is like Get. The context's deadline, or DefaultTimeout when it
// has none, bounds the wait for the kernel's reply, and cancelling the
// context abandons the wait.
func GetContext(ctx context.Context, dst netip.Addr) (Interface, error) {
	if !dst.IsValid() {
		return Interface{}, errInvalidAddr
	}
	if err := ctx.Err(); err != nil {
		return Interface{}, err
	}
	dst = dst.Unmap()

	iface, err := resolve(ctx, dst)
	if err != nil {
		slog.Debug("Interface lookup failed", "destination", dst, "err", err)
		return Interface{}, err
	}
	slog.Debug("Resolved outgoing interface", "destination", dst, "interface", iface.Name, "mtu", iface.MTU)
	return iface, nil
}

// MSS returns the TCP maximum segment size for a connection over the
// interface: the MTU less option-free IP and TCP headers, clamped to
// 536..65495.
func (i Interface) MSS(ipv6 bool) uint16 {
	const (
		minMSS = 536 // RFC 879
		maxMSS = 65495
	)
	headers := uint(20 + 20)
	if ipv6 {
		headers = 40 + 20
	}
	if i.MTU <= headers+minMSS {
		return minMSS
	}
	if mss := i.MTU - headers; mss < maxMSS {
		return uint16(mss)
	}
	return maxMSS
}

func (i Interface) String() string {
	return fmt.Sprintf("%s (MTU %d)", i.Name, i.MTU)
}

// deadline is the read deadline for kernel sockets serving ctx.
func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(DefaultTimeout)
}

// newInterface converts a kernel MTU to the platform's uint.
func newInterface(name string, mtu uint64) (Interface, error) {
	if err := wire.Invariant(mtu <= uint64(^uint(0)), "MTU %d of %s overflows uint", mtu, name); err != nil {
		return Interface{}, err
	}
	return Interface{Name: name, MTU: uint(mtu)}, nil
}
