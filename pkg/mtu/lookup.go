package mtu

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
)

// probePort replaces a zero remote port when connecting. Some kernels refuse
// to connect a UDP socket to port 0. Nothing is ever sent.
const probePort = 9

var errNoAddress = errors.New("neither local nor remote address given")

// Lookup is the socket-pair form of GetContext. A zero local or remote
// AddrPort counts as absent, and at least one must be given.
//
//   - Remote only: an unbound UDP socket is connected to remote, which fails
//     if the host has no route there, and the route towards remote is
//     resolved.
//   - Local only: the interface holding the local address is returned. No
//     route lookup takes place.
//   - Both: a UDP socket is bound to local and connected to remote, and the
//     route towards remote is resolved.
//
// Addresses of different families never match. Lookup reports them as a
// *net.OpError with Op "bind" wrapping ErrFamilyMismatch.
func Lookup(ctx context.Context, local, remote netip.AddrPort) (Interface, error) {
	haveLocal, haveRemote := local.IsValid(), remote.IsValid()
	local = unmap(local)
	remote = unmap(remote)

	switch {
	case !haveLocal && !haveRemote:
		return Interface{}, errNoAddress
	case !haveRemote:
		if err := bindCheck(ctx, local); err != nil {
			return Interface{}, err
		}
		return getLocal(ctx, local.Addr())
	}

	if haveLocal && local.Addr().Is4() != remote.Addr().Is4() {
		return Interface{}, &net.OpError{
			Op:     "bind",
			Net:    "udp",
			Source: net.UDPAddrFromAddrPort(local),
			Addr:   net.UDPAddrFromAddrPort(remote),
			Err:    ErrFamilyMismatch,
		}
	}

	if err := connectCheck(ctx, local, remote); err != nil {
		return Interface{}, err
	}
	return GetContext(ctx, remote.Addr())
}

func getLocal(ctx context.Context, addr netip.Addr) (Interface, error) {
	if err := ctx.Err(); err != nil {
		return Interface{}, err
	}
	iface, err := resolveLocal(ctx, addr)
	if err != nil {
		slog.Debug("Local interface lookup failed", "local", addr, "err", err)
		return Interface{}, err
	}
	slog.Debug("Resolved local interface", "local", addr, "interface", iface.Name, "mtu", iface.MTU)
	return iface, nil
}

// bindCheck binds a UDP socket to local, which fails unless the address is
// assigned to this host.
func bindCheck(ctx context.Context, local netip.AddrPort) error {
	var lc net.ListenConfig
	c, err := lc.ListenPacket(ctx, network(local.Addr()), local.String())
	if err != nil {
		return err
	}
	return c.Close()
}

// connectCheck connects a UDP socket from local, when given, to remote. No
// packet leaves the host.
func connectCheck(ctx context.Context, local, remote netip.AddrPort) error {
	if remote.Port() == 0 {
		remote = netip.AddrPortFrom(remote.Addr(), probePort)
	}
	d := net.Dialer{}
	if local.IsValid() {
		d.LocalAddr = net.UDPAddrFromAddrPort(local)
	}
	c, err := d.DialContext(ctx, network(remote.Addr()), remote.String())
	if err != nil {
		return err
	}
	slog.Debug("Connected probe socket", "local", c.LocalAddr(), "remote", c.RemoteAddr())
	return c.Close()
}

func network(a netip.Addr) string {
	if a.Is4() {
		return "udp4"
	}
	return "udp6"
}

func unmap(ap netip.AddrPort) netip.AddrPort {
	if !ap.IsValid() {
		return ap
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
