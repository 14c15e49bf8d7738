//go:build darwin || freebsd || netbsd || openbsd

package rtsock

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/tkjaer/ifmtu/internal/wire"
	"github.com/tkjaer/ifmtu/pkg/iface"
	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// Function variable for mocking
var fetchRIB = route.FetchRIB

// interfaceList reads the kernel's NET_RT_IFLIST dump.
func interfaceList() ([]route.Message, error) {
	rib, err := fetchRIB(unix.AF_UNSPEC, route.RIBTypeInterface, 0)
	if err != nil {
		return nil, err
	}
	msgs, err := route.ParseRIB(route.RIBTypeInterface, rib)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing interface list: %v", wire.ErrNotFound, err)
	}
	return msgs, nil
}

// LinkMTU looks up the link-level MTU of the named interface in the kernel's
// interface list. It serves replies whose route metrics carry no MTU.
func LinkMTU(name string) (uint64, error) {
	msgs, err := interfaceList()
	if err != nil {
		return 0, err
	}
	for _, m := range msgs {
		im, ok := m.(*route.InterfaceMessage)
		if !ok || im.Name != name {
			continue
		}
		if mtu := linkMTU(im); mtu > 0 {
			slog.Debug("Found link MTU in interface list", "interface", name, "mtu", mtu)
			return mtu, nil
		}
	}
	return 0, fmt.Errorf("%w: interface %q has no link MTU", wire.ErrNotFound, name)
}

// LocalLink returns the interface that owns addr.
func LocalLink(addr netip.Addr) (Link, error) {
	msgs, err := interfaceList()
	if err != nil {
		return Link{}, err
	}
	addr = addr.Unmap()

	links := make(map[int]*route.InterfaceMessage)
	owner := -1
	for _, m := range msgs {
		switch m := m.(type) {
		case *route.InterfaceMessage:
			links[m.Index] = m
		case *route.InterfaceAddrMessage:
			if owner < 0 && len(m.Addrs) > unix.RTAX_IFA && addrEqual(m.Addrs[unix.RTAX_IFA], addr) {
				owner = m.Index
			}
		}
	}
	if owner < 0 {
		return Link{}, fmt.Errorf("%w: no interface owns %s", wire.ErrNotFound, addr)
	}
	im, ok := links[owner]
	if !ok || im.Name == "" {
		return Link{}, fmt.Errorf("%w: interface %d owning %s is not listed", wire.ErrNotFound, owner, addr)
	}
	return Link{
		Identity: iface.Identity{Index: uint32(owner), Name: im.Name},
		MTU:      linkMTU(im),
	}, nil
}

func linkMTU(im *route.InterfaceMessage) uint64 {
	for _, s := range im.Sys() {
		if m, ok := s.(*route.InterfaceMetrics); ok && m.MTU > 0 {
			return uint64(m.MTU)
		}
	}
	return 0
}

func addrEqual(a route.Addr, want netip.Addr) bool {
	switch a := a.(type) {
	case *route.Inet4Addr:
		return want.Is4() && netip.AddrFrom4(a.IP) == want
	case *route.Inet6Addr:
		return want.Is6() && netip.AddrFrom16(a.IP) == want.WithZone("")
	}
	return false
}
