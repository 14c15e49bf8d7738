//go:build openbsd

package rtsock

import "golang.org/x/sys/unix"

// Native is the rt_msghdr layout of OpenBSD. The header carries its own
// length in rtm_hdrlen, and RTM_GET is sent with only the destination.
var Native = Layout{
	Align:     8,
	HeaderLen: unix.SizeofRtMsghdr,
	Version:   unix.RTM_VERSION,
	TypeGet:   unix.RTM_GET,

	OffIndex:  6,
	OffHdrLen: 4,
	OffAddrs:  12,
	OffPid:    24,
	OffSeq:    28,
	OffErrno:  32,
	OffMTU:    60,
	MTUWidth:  4,

	QueryAddrs: unix.RTA_DST,
	AddrIFP:    unix.RTAX_IFP,
	AddrIFA:    unix.RTAX_IFA,
	AddrMax:    unix.RTAX_MAX,

	AFInet:  unix.AF_INET,
	AFInet6: unix.AF_INET6,
	AFLink:  unix.AF_LINK,

	SizeofSockaddrInet4: unix.SizeofSockaddrInet4,
	SizeofSockaddrInet6: unix.SizeofSockaddrInet6,
}
