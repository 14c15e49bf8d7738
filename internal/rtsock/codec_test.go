package rtsock

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tkjaer/ifmtu/internal/wire"
	"github.com/tkjaer/ifmtu/pkg/iface"
)

// Layouts shaped after Darwin (4-byte alignment, 32-bit metrics) and NetBSD
// (8-byte alignment, 64-bit metrics), with constants fixed so the tests run
// on any platform.
var (
	layout4 = Layout{
		Align: 4, HeaderLen: 92, Version: 5, TypeGet: 4,
		OffIndex: 4, OffHdrLen: -1, OffAddrs: 12, OffPid: 16, OffSeq: 20, OffErrno: 24,
		OffMTU: 40, MTUWidth: 4,
		QueryAddrs: 0x1 | 0x10, AddrIFP: 4, AddrIFA: 5, AddrMax: 8,
		AFInet: 2, AFInet6: 30, AFLink: 18,
		SizeofSockaddrInet4: 16, SizeofSockaddrInet6: 28,
	}
	layout8 = Layout{
		Align: 8, HeaderLen: 120, Version: 4, TypeGet: 4,
		OffIndex: 4, OffHdrLen: -1, OffAddrs: 12, OffPid: 16, OffSeq: 20, OffErrno: 24,
		OffMTU: 48, MTUWidth: 8,
		QueryAddrs: 0x1 | 0x10, AddrIFP: 4, AddrIFA: 5, AddrMax: 9,
		AFInet: 2, AFInet6: 24, AFLink: 18,
		SizeofSockaddrInet4: 16, SizeofSockaddrInet6: 28,
	}
	// OpenBSD-like: rtm_hdrlen present, shifted fields.
	layoutHdrLen = Layout{
		Align: 8, HeaderLen: 96, Version: 5, TypeGet: 4,
		OffIndex: 6, OffHdrLen: 4, OffAddrs: 12, OffPid: 24, OffSeq: 28, OffErrno: 32,
		OffMTU: 60, MTUWidth: 4,
		QueryAddrs: 0x1, AddrIFP: 4, AddrIFA: 5, AddrMax: 15,
		AFInet: 2, AFInet6: 24, AFLink: 18,
		SizeofSockaddrInet4: 16, SizeofSockaddrInet6: 28,
	}
)

// sockaddrDL builds a sockaddr_dl of the given total length.
func sockaddrDL(l Layout, length int, index uint16, name string) []byte {
	sa := make([]byte, length)
	sa[0] = uint8(length)
	sa[sdlOffFamily] = l.AFLink
	binary.NativeEndian.PutUint16(sa[sdlOffIndex:], index)
	sa[sdlOffNlen] = uint8(len(name))
	copy(sa[sdlOffData:], name)
	return sa
}

func sockaddrIn(l Layout, a netip.Addr) []byte {
	if a.Is4() {
		sa := make([]byte, l.SizeofSockaddrInet4)
		sa[0], sa[1] = uint8(len(sa)), l.AFInet
		copy(sa[4:], a.AsSlice())
		return sa
	}
	sa := make([]byte, l.SizeofSockaddrInet6)
	sa[0], sa[1] = uint8(len(sa)), l.AFInet6
	copy(sa[8:], a.AsSlice())
	return sa
}

type slot struct {
	index int
	sa    []byte
}

// reply assembles an RTM_GET reply with the given sockaddr slots, each padded
// to the layout's alignment.
func reply(l Layout, pid int, seq uint32, mtu uint64, slots ...slot) []byte {
	b := make([]byte, l.HeaderLen)
	ne := binary.NativeEndian
	b[2], b[3] = l.Version, l.TypeGet
	ne.PutUint16(b[l.OffIndex:], 3)
	ne.PutUint32(b[l.OffPid:], uint32(pid))
	ne.PutUint32(b[l.OffSeq:], seq)
	if l.MTUWidth == 8 {
		ne.PutUint64(b[l.OffMTU:], mtu)
	} else {
		ne.PutUint32(b[l.OffMTU:], uint32(mtu))
	}
	var addrs uint32
	for _, s := range slots {
		addrs |= 1 << s.index
		b = append(b, s.sa...)
		b = append(b, make([]byte, wire.Roundup(len(s.sa), l.Align)-len(s.sa))...)
	}
	ne.PutUint32(b[l.OffAddrs:], addrs)
	ne.PutUint16(b[0:], uint16(len(b)))
	return b
}

func TestEncodeGetLength(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		dst     string
		wantLen int
	}{
		{"IPv4 align 4", layout4, "192.0.2.1", 92 + 16},
		{"IPv6 align 4", layout4, "2001:db8::1", 92 + 28},
		{"IPv4 align 8", layout8, "192.0.2.1", 120 + 16},
		{"IPv6 align 8", layout8, "2001:db8::1", 120 + 32},
		{"IPv4-mapped align 8", layout8, "::ffff:192.0.2.1", 120 + 16},
		{"IPv6 with header length", layoutHdrLen, "2001:db8::1", 96 + 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.layout.EncodeGet(netip.MustParseAddr(tt.dst), 77)
			if err != nil {
				t.Fatalf("EncodeGet() error = %v", err)
			}
			declared := int(binary.NativeEndian.Uint16(b[0:2]))
			if declared != len(b) || len(b) != tt.wantLen {
				t.Errorf("declared %d, serialized %d, want %d", declared, len(b), tt.wantLen)
			}
			if len(b)%tt.layout.Align != 0 {
				t.Errorf("length %d not aligned to %d", len(b), tt.layout.Align)
			}
			if b[2] != tt.layout.Version || b[3] != tt.layout.TypeGet {
				t.Errorf("version/type = %d/%d", b[2], b[3])
			}
			if got := binary.NativeEndian.Uint32(b[tt.layout.OffSeq:]); got != 77 {
				t.Errorf("seq = %d, want 77", got)
			}
			if got := int32(binary.NativeEndian.Uint32(b[tt.layout.OffAddrs:])); got != tt.layout.QueryAddrs {
				t.Errorf("addrs = %#x, want %#x", got, tt.layout.QueryAddrs)
			}
		})
	}
}

func TestEncodeGetSockaddr(t *testing.T) {
	dst := netip.MustParseAddr("2001:db8::1")
	b, err := layoutHdrLen.EncodeGet(dst, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.NativeEndian.Uint16(b[layoutHdrLen.OffHdrLen:]); got != 96 {
		t.Errorf("rtm_hdrlen = %d, want 96", got)
	}
	sa := b[layoutHdrLen.HeaderLen:]
	if diff := cmp.Diff(sockaddrIn(layoutHdrLen, dst), sa[:28]); diff != "" {
		t.Errorf("sockaddr_in6 mismatch (-want +got):\n%s", diff)
	}

	if _, err := layout4.EncodeGet(netip.Addr{}, 1); err == nil {
		t.Error("EncodeGet(invalid) succeeded")
	}
}

func TestMatch(t *testing.T) {
	const (
		pid = 4242
		seq = 9
	)
	good := reply(layout4, pid, seq, 1500, slot{4, sockaddrDL(layout4, 20, 3, "en0")})

	withErrno := append([]byte(nil), good...)
	binary.NativeEndian.PutUint32(withErrno[layout4.OffErrno:], uint32(syscall.ESRCH))

	otherType := append([]byte(nil), good...)
	otherType[3] = 0xe // RTM_IFINFO

	otherVersion := append([]byte(nil), good...)
	otherVersion[2]++

	// Another process's reply whose declared length runs past what was read.
	foreignOverlong := reply(layout4, pid+1, seq, 1500, slot{4, sockaddrDL(layout4, 20, 3, "en0")})
	binary.NativeEndian.PutUint16(foreignOverlong[0:], uint16(len(foreignOverlong)+300))

	foreignShort := append([]byte(nil), foreignOverlong[:layout4.HeaderLen-1]...)

	tests := []struct {
		name    string
		b       []byte
		wantOK  bool
		wantErr error
	}{
		{name: "reply", b: good, wantOK: true},
		{name: "other process", b: reply(layout4, pid+1, seq, 1500)},
		{name: "other sequence", b: reply(layout4, pid, seq+1, 1500)},
		{name: "other message type", b: otherType},
		{name: "other version", b: otherVersion},
		{name: "short foreign message", b: []byte{20, 0, 5, 0xc}},
		{name: "runt", b: []byte{1}},
		{name: "other process declaring too many bytes", b: foreignOverlong},
		{name: "other process shorter than header", b: foreignShort},
		{name: "errno", b: withErrno, wantErr: syscall.ESRCH},
		{name: "shorter than header", b: good[:layout4.HeaderLen-1], wantErr: wire.ErrNotFound},
		{name: "declared length past read", b: good[:layout4.HeaderLen+4], wantErr: wire.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok, err := layout4.Match(tt.b, pid, seq)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Match() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Match() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && len(msg) != len(tt.b) {
				t.Errorf("Match() returned %d bytes, want %d", len(msg), len(tt.b))
			}
		})
	}
}

func TestMatchTrimsToDeclaredLength(t *testing.T) {
	b := reply(layout8, 1, 2, 1500, slot{4, sockaddrDL(layout8, 20, 1, "lo0")})
	padded := append(append([]byte(nil), b...), make([]byte, 64)...)
	msg, ok, err := layout8.Match(padded, 1, 2)
	if err != nil || !ok {
		t.Fatalf("Match() = %v, %v", ok, err)
	}
	if len(msg) != len(b) {
		t.Errorf("Match() returned %d bytes, want %d", len(msg), len(b))
	}
}

func TestParseGet(t *testing.T) {
	dst4 := netip.MustParseAddr("192.0.2.1")
	dst6 := netip.MustParseAddr("2001:db8::1")

	tests := []struct {
		name    string
		layout  Layout
		b       []byte
		want    Link
		wantErr bool
	}{
		{
			name:   "destination then interface",
			layout: layout4,
			b: reply(layout4, 1, 1, 1500,
				slot{0, sockaddrIn(layout4, dst4)},
				slot{4, sockaddrDL(layout4, 20, 7, "en0")}),
			want: Link{Identity: iface.Identity{Index: 7, Name: "en0"}, MTU: 1500},
		},
		{
			name:   "IPv6 destination at 8 byte alignment",
			layout: layout8,
			b: reply(layout8, 1, 1, 9000,
				slot{0, sockaddrIn(layout8, dst6)},
				slot{1, sockaddrIn(layout8, netip.MustParseAddr("fe80::1"))},
				slot{4, sockaddrDL(layout8, 20, 2, "wm0")}),
			want: Link{Identity: iface.Identity{Index: 2, Name: "wm0"}, MTU: 9000},
		},
		{
			name:   "zero length slot occupies one unit",
			layout: layout4,
			b: reply(layout4, 1, 1, 16384,
				slot{0, sockaddrIn(layout4, dst4)},
				slot{2, nil},
				slot{4, sockaddrDL(layout4, 20, 1, "lo0")}),
			want: Link{Identity: iface.Identity{Index: 1, Name: "lo0"}, MTU: 16384},
		},
		{
			name:   "zero length slot at 8 byte alignment",
			layout: layout8,
			b: reply(layout8, 1, 1, 1500,
				slot{2, nil},
				slot{4, sockaddrDL(layout8, 20, 4, "re0")}),
			want: Link{Identity: iface.Identity{Index: 4, Name: "re0"}, MTU: 1500},
		},
		{
			name:   "name taken from interface address slot",
			layout: layoutHdrLen,
			b: reply(layoutHdrLen, 1, 1, 0,
				slot{0, sockaddrIn(layoutHdrLen, dst4)},
				slot{5, sockaddrDL(layoutHdrLen, 24, 5, "vio0")}),
			want: Link{Identity: iface.Identity{Index: 5, Name: "vio0"}, MTU: 0},
		},
		{
			name:   "unnamed link in IFP falls through to IFA",
			layout: layout4,
			b: reply(layout4, 1, 1, 1500,
				slot{4, sockaddrDL(layout4, 20, 6, "")},
				slot{5, sockaddrDL(layout4, 20, 6, "bridge0")}),
			want: Link{Identity: iface.Identity{Index: 6, Name: "bridge0"}, MTU: 1500},
		},
		{
			name:   "index taken from header when sockaddr_dl has none",
			layout: layout4,
			b: reply(layout4, 1, 1, 1500,
				slot{4, sockaddrDL(layout4, 20, 0, "utun3")}),
			want: Link{Identity: iface.Identity{Index: 3, Name: "utun3"}, MTU: 1500},
		},
		{
			name:   "maximum 64-bit MTU",
			layout: layout8,
			b: reply(layout8, 1, 1, ^uint64(0),
				slot{4, sockaddrDL(layout8, 20, 1, "lo0")}),
			want: Link{Identity: iface.Identity{Index: 1, Name: "lo0"}, MTU: ^uint64(0)},
		},
		{
			name:    "no interface slot",
			layout:  layout4,
			b:       reply(layout4, 1, 1, 1500, slot{0, sockaddrIn(layout4, dst4)}),
			wantErr: true,
		},
		{
			name:    "name overruns sockaddr_dl",
			layout:  layout4,
			b:       reply(layout4, 1, 1, 1500, slot{4, sockaddrDL(layout4, 10, 1, "en0")}),
			wantErr: true,
		},
		{
			name:   "slot overruns message",
			layout: layout4,
			b: func() []byte {
				b := reply(layout4, 1, 1, 1500, slot{0, sockaddrIn(layout4, dst4)})
				b[layout4.HeaderLen] = 200
				return b
			}(),
			wantErr: true,
		},
		{
			name:   "bitmask names more slots than present",
			layout: layout4,
			b: func() []byte {
				b := reply(layout4, 1, 1, 1500, slot{0, sockaddrIn(layout4, dst4)})
				binary.NativeEndian.PutUint32(b[layout4.OffAddrs:], 0x1|0x10)
				return b
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.layout.ParseGet(tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGet() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, wire.ErrNotFound) {
				t.Errorf("ParseGet() error %v is not ErrNotFound", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseGet() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
