package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/jackpal/gateway"
)

// Function variables for mocking
var (
	lookupHost      = net.DefaultResolver.LookupHost
	discoverGateway = gateway.DiscoverGateway
)

// RemoteAddr resolves the destination, or the default gateway with
// --gateway, honouring -4 and -6. It returns the zero AddrPort when only a
// local address was given.
func (a Args) RemoteAddr(ctx context.Context) (netip.AddrPort, error) {
	if a.Gateway {
		addr, err := a.gatewayAddr()
		if err != nil {
			return netip.AddrPort{}, err
		}
		return netip.AddrPortFrom(addr, uint16(a.Port)), nil
	}
	if a.Destination == "" {
		return netip.AddrPort{}, nil
	}

	ips, err := lookupHost(ctx, a.Destination)
	if err != nil {
		return netip.AddrPort{}, err
	}
	for _, ip := range ips {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			slog.Debug("Skipping unparsable address", "destination", a.Destination, "address", ip)
			continue
		}
		if a.familyAllowed(addr) {
			return netip.AddrPortFrom(addr.Unmap(), uint16(a.Port)), nil
		}
	}
	return netip.AddrPort{}, fmt.Errorf("could not resolve destination %s%s", a.Destination, a.familySuffix())
}

func (a Args) gatewayAddr() (netip.Addr, error) {
	ip, err := discoverGateway()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("discovering default gateway: %w", err)
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, errors.New("default gateway has no usable address")
	}
	addr = addr.Unmap()
	if !a.familyAllowed(addr) {
		return netip.Addr{}, fmt.Errorf("default gateway %s is not%s", addr, a.familySuffix())
	}
	slog.Debug("Discovered default gateway", "gateway", addr)
	return addr, nil
}

// LocalAddr parses --local as ADDR:PORT or a bare ADDR. It returns the zero
// AddrPort when no local address was given.
func (a Args) LocalAddr() (netip.AddrPort, error) {
	if a.Local == "" {
		return netip.AddrPort{}, nil
	}
	ap, err := netip.ParseAddrPort(a.Local)
	if err != nil {
		addr, err := netip.ParseAddr(a.Local)
		if err != nil {
			return netip.AddrPort{}, fmt.Errorf("invalid local address %q", a.Local)
		}
		ap = netip.AddrPortFrom(addr, 0)
	}
	if !a.familyAllowed(ap.Addr().Unmap()) {
		return netip.AddrPort{}, fmt.Errorf("local address %s is not%s", ap.Addr(), a.familySuffix())
	}
	return ap, nil
}

func (a Args) familyAllowed(addr netip.Addr) bool {
	switch {
	case a.ForceIPv4:
		return addr.Is4()
	case a.ForceIPv6:
		return addr.Is6()
	default:
		return true
	}
}

func (a Args) familySuffix() string {
	switch {
	case a.ForceIPv4:
		return " IPv4"
	case a.ForceIPv6:
		return " IPv6"
	default:
		return ""
	}
}
