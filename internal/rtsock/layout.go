// Package rtsock queries the kernel routing table over a BSD routing socket.
//
// Encoding and decoding are driven by a Layout, the per-OS description of
// struct rt_msghdr and its neighbours, so the codec itself carries no build
// constraints.
package rtsock

// Layout describes the routing socket ABI of one operating system and
// architecture. Offsets are in bytes from the start of struct rt_msghdr.
type Layout struct {
	// Align is the kernel's sockaddr alignment (RT_ROUNDUP / SA_SIZE).
	Align int
	// HeaderLen is sizeof(struct rt_msghdr).
	HeaderLen int

	Version uint8 // RTM_VERSION
	TypeGet uint8 // RTM_GET

	OffIndex  int // rtm_index (uint16)
	OffHdrLen int // rtm_hdrlen (uint16), -1 when the header has none
	OffAddrs  int // rtm_addrs (int32)
	OffPid    int // rtm_pid (int32)
	OffSeq    int // rtm_seq (int32)
	OffErrno  int // rtm_errno (int32)
	OffMTU    int // rtm_rmx.rmx_mtu
	MTUWidth  int // 4 or 8

	// QueryAddrs is the rtm_addrs bitmask sent with RTM_GET.
	QueryAddrs int32
	// AddrIFP and AddrIFA are the RTAX_IFP and RTAX_IFA slot numbers.
	AddrIFP int
	AddrIFA int
	// AddrMax is RTAX_MAX.
	AddrMax int

	AFInet  uint8
	AFInet6 uint8
	AFLink  uint8

	SizeofSockaddrInet4 int
	SizeofSockaddrInet6 int
}

// ReadBufferLen is large enough for a header plus every sockaddr slot at the
// size of a sockaddr_storage.
func (l Layout) ReadBufferLen() int {
	const sizeofSockaddrStorage = 128
	return l.HeaderLen + l.AddrMax*sizeofSockaddrStorage
}
