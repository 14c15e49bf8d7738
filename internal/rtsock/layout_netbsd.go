//go:build netbsd

package rtsock

import "golang.org/x/sys/unix"

// Native is the rt_msghdr layout of NetBSD, where rt_metrics is made of
// 64-bit fields and sockaddrs are padded to 8 bytes on every architecture.
var Native = Layout{
	Align:     8,
	HeaderLen: unix.SizeofRtMsghdr,
	Version:   unix.RTM_VERSION,
	TypeGet:   unix.RTM_GET,

	OffIndex:  4,
	OffHdrLen: -1,
	OffAddrs:  12,
	OffPid:    16,
	OffSeq:    20,
	OffErrno:  24,
	OffMTU:    48,
	MTUWidth:  8,

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
