//go:build linux

package mtu

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"github.com/tkjaer/ifmtu/internal/nlroute"
	"github.com/tkjaer/ifmtu/internal/seq"
	"golang.org/x/sys/unix"
)

// conn is the part of *netlink.Conn the resolver uses.
type conn interface {
	nlroute.Conn
	SetReadDeadline(t time.Time) error
	Close() error
}

// dial opens a NETLINK_ROUTE socket.
// Variable for mocking in tests.
var dial = func() (conn, error) {
	c, err := netlink.Dial(unix.NETLINK_ROUTE, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// listAddresses dumps the host's interface addresses.
// Variable for mocking in tests.
var listAddresses = func() ([]rtnetlink.AddressMessage, error) {
	c, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Address.List()
}

// resolve asks for the route towards dst, then for the link the route leaves through.
func resolve(ctx context.Context, dst netip.Addr) (Interface, error) {
	c, err := open(ctx)
	if err != nil {
		return Interface{}, err
	}
	defer c.Close()

	req, err := nlroute.RouteQuery(dst, seq.Next())
	if err != nil {
		return Interface{}, err
	}
	m, err := nlroute.Exchange(c, req, nlroute.TypeNewRoute)
	if err != nil {
		return Interface{}, err
	}
	index, err := nlroute.ParseRoute(m)
	if err != nil {
		return Interface{}, err
	}
	slog.Debug("Route lookup done", "destination", dst, "index", index)

	return link(c, index)
}

// resolveLocal finds the interface holding addr and asks for that link.
func resolveLocal(ctx context.Context, addr netip.Addr) (Interface, error) {
	msgs, err := listAddresses()
	if err != nil {
		return Interface{}, err
	}
	index, ok := addressOwner(msgs, addr)
	if !ok {
		return Interface{}, fmt.Errorf("%w: no interface holds %s", ErrNotFound, addr)
	}
	slog.Debug("Address lookup done", "local", addr, "index", index)

	c, err := open(ctx)
	if err != nil {
		return Interface{}, err
	}
	defer c.Close()
	return link(c, index)
}

// open dials netlink and ties the socket's read deadline to ctx. Closing the
// returned conn releases the context hook.
func open(ctx context.Context) (conn, error) {
	c, err := dial()
	if err != nil {
		return nil, err
	}
	if err := c.SetReadDeadline(deadline(ctx)); err != nil {
		c.Close()
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		// Wake up a pending Receive.
		c.SetReadDeadline(time.Unix(1, 0))
	})
	return &ctxConn{conn: c, stop: stop}, nil
}

type ctxConn struct {
	conn
	stop func() bool
}

func (c *ctxConn) Close() error {
	c.stop()
	return c.conn.Close()
}

func link(c conn, index uint32) (Interface, error) {
	req, err := nlroute.LinkQuery(index, seq.Next())
	if err != nil {
		return Interface{}, err
	}
	m, err := nlroute.Exchange(c, req, nlroute.TypeNewLink)
	if err != nil {
		return Interface{}, err
	}
	l, err := nlroute.ParseLink(m)
	if err != nil {
		return Interface{}, err
	}
	return newInterface(l.Name, uint64(l.MTU))
}

// addressOwner returns the index of the interface holding addr. Only
// addresses of addr's family are considered.
func addressOwner(msgs []rtnetlink.AddressMessage, addr netip.Addr) (uint32, bool) {
	family := uint8(unix.AF_INET6)
	if addr.Is4() {
		family = unix.AF_INET
	}
	addr = addr.WithZone("")
	for _, m := range msgs {
		if m.Family != family || m.Attributes == nil {
			continue
		}
		// On point-to-point links IFA_ADDRESS is the peer and IFA_LOCAL ours.
		for _, ip := range []net.IP{m.Attributes.Local, m.Attributes.Address} {
			if a, ok := netip.AddrFromSlice(ip); ok && a.Unmap() == addr {
				return m.Index, true
			}
		}
	}
	return 0, false
}
