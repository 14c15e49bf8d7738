//go:build freebsd

package rtsock

import (
	"math/bits"

	"golang.org/x/sys/unix"
)

// Native is the rt_msghdr layout of FreeBSD. rtm_inits and the rt_metrics
// fields are u_long, so the MTU offset and width follow the word size, as
// does the sockaddr padding (SA_SIZE).
var Native = Layout{
	Align:     bits.UintSize / 8,
	HeaderLen: unix.SizeofRtMsghdr,
	Version:   unix.RTM_VERSION,
	TypeGet:   unix.RTM_GET,

	OffIndex:  4,
	OffHdrLen: -1,
	OffAddrs:  12,
	OffPid:    16,
	OffSeq:    20,
	OffErrno:  24,
	OffMTU:    32 + 2*bits.UintSize/8,
	MTUWidth:  bits.UintSize / 8,

	QueryAddrs: unix.RTA_DST | unix.RTA_IFP,
	AddrIFP:    unix.RTAX_IFP,
	AddrIFA:    unix.RTAX_IFA,
	AddrMax:    unix.RTAX_MAX,

	AFInet:  unix.AF_INET,
	AFInet6: unix.AF_INET6,
	AFLink:  unix.AF_LINK,

	SizeofSockaddrInet4: unix.SizeofSockaddrInet4,
	SizeofSockaddrInet6: unix.SizeofSockaddrInet6,
}
