//go:build linux

// Package nlroute speaks just enough rtnetlink to ask the kernel which interface
// routes towards a destination and what that interface's name and MTU are.
package nlroute

import (
	"fmt"
	"net/netip"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/tkjaer/ifmtu/internal/wire"
	"github.com/tkjaer/ifmtu/pkg/iface"
	"golang.org/x/sys/unix"
)

const (
	alignTo         = unix.NLMSG_ALIGNTO
	sizeofRtMsg     = unix.SizeofRtMsg
	sizeofIfInfomsg = unix.SizeofIfInfomsg
	sizeofRtAttr    = unix.SizeofRtAttr

	attrTypeMask = ^uint16(unix.NLA_F_NESTED | unix.NLA_F_NET_BYTEORDER)
)

// Message types exchanged by the two query steps.
const (
	TypeGetRoute = netlink.HeaderType(unix.RTM_GETROUTE)
	TypeNewRoute = netlink.HeaderType(unix.RTM_NEWROUTE)
	TypeGetLink  = netlink.HeaderType(unix.RTM_GETLINK)
	TypeNewLink  = netlink.HeaderType(unix.RTM_NEWLINK)
)

// Link is the part of an RTM_NEWLINK reply we care about.
type Link struct {
	iface.Identity
	MTU uint32
}

// RouteQuery builds an RTM_GETROUTE request asking for the main-table route
// towards dst. The request carries a single RTA_DST attribute.
func RouteQuery(dst netip.Addr, seq uint32) (netlink.Message, error) {
	if !dst.IsValid() {
		return netlink.Message{}, fmt.Errorf("invalid destination address")
	}
	dst = dst.Unmap()
	addr := dst.AsSlice()

	family := unix.AF_INET
	if dst.Is6() {
		family = unix.AF_INET6
	}

	attrLen := sizeofRtAttr + len(addr)
	rtaLen, err := wire.Uint16Len(attrLen)
	if err != nil {
		return netlink.Message{}, err
	}

	body := make([]byte, sizeofRtMsg+wire.Align(attrLen, alignTo))
	// struct rtmsg
	body[0] = uint8(family)
	body[1] = uint8(dst.BitLen()) // rtm_dst_len
	body[4] = unix.RT_TABLE_MAIN
	body[6] = unix.RT_SCOPE_UNIVERSE
	body[7] = unix.RTN_UNICAST
	// struct rtattr + address
	nlenc.PutUint16(body[sizeofRtMsg:sizeofRtMsg+2], rtaLen)
	nlenc.PutUint16(body[sizeofRtMsg+2:sizeofRtMsg+4], unix.RTA_DST)
	copy(body[sizeofRtMsg+sizeofRtAttr:], addr)

	return request(TypeGetRoute, body, seq)
}

// LinkQuery builds an RTM_GETLINK request for the interface with the given index.
func LinkQuery(index uint32, seq uint32) (netlink.Message, error) {
	if err := wire.Invariant(index <= 1<<31-1, "interface index %d overflows ifi_index", index); err != nil {
		return netlink.Message{}, err
	}
	body := make([]byte, sizeofIfInfomsg)
	// struct ifinfomsg
	body[0] = unix.AF_UNSPEC
	nlenc.PutUint16(body[2:4], unix.ARPHRD_NONE)
	nlenc.PutUint32(body[4:8], index)

	return request(TypeGetLink, body, seq)
}

func request(typ netlink.HeaderType, body []byte, seq uint32) (netlink.Message, error) {
	length, err := wire.Uint32Len(unix.NLMSG_HDRLEN + wire.Align(len(body), alignTo))
	if err != nil {
		return netlink.Message{}, err
	}
	return netlink.Message{
		Header: netlink.Header{
			Length:   length,
			Type:     typ,
			Flags:    netlink.Request | netlink.Acknowledge,
			Sequence: seq,
		},
		Data: body,
	}, nil
}

// ParseRoute extracts the output interface index (RTA_OIF) from an RTM_NEWROUTE reply.
func ParseRoute(m netlink.Message) (uint32, error) {
	c := wire.NewCursor(m.Data)
	if err := c.Skip(sizeofRtMsg); err != nil {
		return 0, err
	}
	attrs, _ := c.Next(c.Len())

	var (
		index uint32
		found bool
	)
	err := walkAttrs(attrs, func(typ uint16, val []byte) (bool, error) {
		if typ != unix.RTA_OIF {
			return true, nil
		}
		v, err := wire.Uint32At(val, 0)
		if err != nil {
			return false, err
		}
		index, found = v, true
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: route reply has no output interface", wire.ErrNotFound)
	}
	return index, nil
}

// ParseLink extracts the interface name and MTU from an RTM_NEWLINK reply.
func ParseLink(m netlink.Message) (Link, error) {
	c := wire.NewCursor(m.Data)
	hdr, err := c.Next(sizeofIfInfomsg)
	if err != nil {
		return Link{}, err
	}
	index, _ := wire.Uint32At(hdr, 4)
	attrs, _ := c.Next(c.Len())

	link := Link{Identity: iface.Identity{Index: index}}
	var haveMTU bool
	err = walkAttrs(attrs, func(typ uint16, val []byte) (bool, error) {
		switch typ {
		case unix.IFLA_IFNAME:
			name, err := iface.DecodeName(val, iface.NameSize-1)
			if err != nil {
				return false, fmt.Errorf("%w: %v", wire.ErrNotFound, err)
			}
			link.Name = name
		case unix.IFLA_MTU:
			mtu, err := wire.Uint32At(val, 0)
			if err != nil {
				return false, err
			}
			link.MTU, haveMTU = mtu, true
		}
		return link.Name == "" || !haveMTU, nil
	})
	if err != nil {
		return Link{}, err
	}
	switch {
	case link.Name == "":
		return Link{}, fmt.Errorf("%w: link reply has no interface name", wire.ErrNotFound)
	case !haveMTU:
		return Link{}, fmt.Errorf("%w: link reply has no MTU", wire.ErrNotFound)
	}
	return link, nil
}

// walkAttrs calls fn for every rtattr in b until fn returns false or an error.
// A record shorter than its own header or longer than what is left of b is a
// protocol error.
func walkAttrs(b []byte, fn func(typ uint16, val []byte) (bool, error)) error {
	c := wire.NewCursor(b)
	for c.Len() > 0 {
		hdr, err := c.Peek(sizeofRtAttr)
		if err != nil {
			return err
		}
		l := int(nlenc.Uint16(hdr[0:2]))
		typ := nlenc.Uint16(hdr[2:4]) & attrTypeMask
		if l < sizeofRtAttr {
			return fmt.Errorf("%w: attribute %d has length %d, shorter than its header", wire.ErrNotFound, typ, l)
		}
		rec, err := c.Next(l)
		if err != nil {
			return err
		}
		more, err := fn(typ, rec[sizeofRtAttr:])
		if err != nil || !more {
			return err
		}
		// The last attribute of a message may come without its padding.
		pad := min(wire.Align(l, alignTo)-l, c.Len())
		if err := c.Skip(pad); err != nil {
			return err
		}
	}
	return nil
}
