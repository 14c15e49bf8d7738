//go:build darwin

package rtsock

import "golang.org/x/sys/unix"

// Native is the rt_msghdr layout of Darwin. struct rt_metrics holds 32-bit
// fields on every architecture, and sockaddrs are padded to 4 bytes.
var Native = Layout{
	Align:     4,
	HeaderLen: unix.SizeofRtMsghdr,
	Version:   unix.RTM_VERSION,
	TypeGet:   unix.RTM_GET,

	OffIndex:  4,
	OffHdrLen: -1,
	OffAddrs:  12,
	OffPid:    16,
	OffSeq:    20,
	OffErrno:  24,
	OffMTU:    40,
	MTUWidth:  4,

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
