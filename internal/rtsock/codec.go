package rtsock

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"syscall"

	"github.com/tkjaer/ifmtu/internal/wire"
	"github.com/tkjaer/ifmtu/pkg/iface"
)

// sockaddr_dl: len, family, index(2), type, nlen, alen, slen, data...
const (
	sdlOffFamily = 1
	sdlOffIndex  = 2
	sdlOffNlen   = 5
	sdlOffData   = 8
)

// Link is an interface as reported by the routing socket. MTU is zero when
// the kernel did not fill in the route metrics.
type Link struct {
	iface.Identity
	MTU uint64
}

// EncodeGet builds an RTM_GET request for dst. The message is a bare
// rt_msghdr followed by one sockaddr_in or sockaddr_in6, padded to l.Align.
func (l Layout) EncodeGet(dst netip.Addr, seq uint32) ([]byte, error) {
	if !dst.IsValid() {
		return nil, fmt.Errorf("invalid destination address")
	}
	dst = dst.Unmap()

	var (
		saLen   int
		family  uint8
		addrOff int
	)
	if dst.Is4() {
		saLen, family, addrOff = l.SizeofSockaddrInet4, l.AFInet, 4
	} else {
		saLen, family, addrOff = l.SizeofSockaddrInet6, l.AFInet6, 8
	}

	msgLen, err := wire.Uint16Len(l.HeaderLen + wire.Roundup(saLen, l.Align))
	if err != nil {
		return nil, err
	}

	b := make([]byte, msgLen)
	ne := binary.NativeEndian
	ne.PutUint16(b[0:2], msgLen)
	b[2] = l.Version
	b[3] = l.TypeGet
	if l.OffHdrLen >= 0 {
		hdrLen, err := wire.Uint16Len(l.HeaderLen)
		if err != nil {
			return nil, err
		}
		ne.PutUint16(b[l.OffHdrLen:], hdrLen)
	}
	ne.PutUint32(b[l.OffAddrs:], uint32(l.QueryAddrs))
	ne.PutUint32(b[l.OffSeq:], seq)

	sa := b[l.HeaderLen:]
	sa[0] = uint8(saLen)
	sa[1] = family
	copy(sa[addrOff:], dst.AsSlice())
	return b, nil
}

// Match reports whether b holds the reply to the RTM_GET sent by process pid
// with sequence number seq, and returns the reply cut to its declared length.
// The routing socket carries every process's routing traffic, so anything
// else is reported as not matching. A reply with rtm_errno set ends the
// exchange with that errno.
func (l Layout) Match(b []byte, pid int, seq uint32) ([]byte, bool, error) {
	if len(b) < 4 || b[2] != l.Version || b[3] != l.TypeGet {
		return nil, false, nil
	}
	// Foreign traffic is discarded before any length check.
	gotPid, pidErr := wire.Uint32At(b, l.OffPid)
	gotSeq, seqErr := wire.Uint32At(b, l.OffSeq)
	if pidErr != nil || seqErr != nil || int32(gotPid) != int32(pid) || gotSeq != seq {
		return nil, false, nil
	}

	if len(b) < l.HeaderLen {
		return nil, false, fmt.Errorf("%w: %d byte RTM_GET shorter than rt_msghdr", wire.ErrTruncated, len(b))
	}
	msgLen, _ := wire.Uint16At(b, 0)
	if int(msgLen) < l.HeaderLen || int(msgLen) > len(b) {
		return nil, false, fmt.Errorf("%w: RTM_GET declares %d bytes, read %d", wire.ErrTruncated, msgLen, len(b))
	}
	if errno, _ := wire.Uint32At(b, l.OffErrno); errno != 0 {
		return nil, false, syscall.Errno(errno)
	}
	return b[:msgLen], true, nil
}

// ParseGet extracts the outgoing interface from a matched RTM_GET reply. The
// name comes from the first sockaddr_dl found in the RTAX_IFP or RTAX_IFA
// slot. The MTU comes from the route metrics.
func (l Layout) ParseGet(b []byte) (Link, error) {
	addrs, err := wire.Uint32At(b, l.OffAddrs)
	if err != nil {
		return Link{}, err
	}
	var mtu uint64
	switch l.MTUWidth {
	case 8:
		mtu, err = wire.Uint64At(b, l.OffMTU)
	default:
		var v uint32
		v, err = wire.Uint32At(b, l.OffMTU)
		mtu = uint64(v)
	}
	if err != nil {
		return Link{}, err
	}

	c := wire.NewCursor(b)
	if err := c.Skip(l.HeaderLen); err != nil {
		return Link{}, err
	}
	for i := 0; i < l.AddrMax; i++ {
		if addrs&(1<<i) == 0 {
			continue
		}
		saLen, err := c.Peek(1)
		if err != nil {
			return Link{}, fmt.Errorf("%w: sockaddr slot %d", err, i)
		}
		n := int(saLen[0])
		sa, err := c.Next(n)
		if err != nil {
			return Link{}, fmt.Errorf("%w: sockaddr slot %d", err, i)
		}
		if i == l.AddrIFP || i == l.AddrIFA {
			id, ok, err := l.linkIdentity(sa)
			if err != nil {
				return Link{}, err
			}
			if ok {
				if id.Index == 0 {
					index, _ := wire.Uint16At(b, l.OffIndex)
					id.Index = uint32(index)
				}
				return Link{Identity: id, MTU: mtu}, nil
			}
		}
		// The last slot of a message may come without its padding.
		if err := c.Skip(min(wire.Roundup(n, l.Align)-n, c.Len())); err != nil {
			return Link{}, err
		}
	}
	return Link{}, fmt.Errorf("%w: route reply names no interface", wire.ErrNotFound)
}

// linkIdentity decodes sa if it is a sockaddr_dl carrying an interface name.
func (l Layout) linkIdentity(sa []byte) (iface.Identity, bool, error) {
	if len(sa) < sdlOffData || sa[sdlOffFamily] != l.AFLink || sa[sdlOffNlen] == 0 {
		return iface.Identity{}, false, nil
	}
	nlen := int(sa[sdlOffNlen])
	if sdlOffData+nlen > len(sa) {
		return iface.Identity{}, false, fmt.Errorf("%w: interface name of %d bytes overruns %d byte sockaddr_dl",
			wire.ErrNotFound, nlen, len(sa))
	}
	name, err := iface.DecodeName(sa[sdlOffData:sdlOffData+nlen], iface.NameSize-1)
	if err != nil {
		return iface.Identity{}, false, fmt.Errorf("%w: %v", wire.ErrNotFound, err)
	}
	index, _ := wire.Uint16At(sa, sdlOffIndex)
	return iface.Identity{Index: uint32(index), Name: name}, true, nil
}
