//go:build windows

package iphlp

import (
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"unsafe"

	"github.com/tkjaer/ifmtu/internal/wire"
	"github.com/tkjaer/ifmtu/pkg/iface"
	"golang.org/x/sys/windows"
)

var (
	modiphlpapi = windows.NewLazySystemDLL("iphlpapi.dll")

	procGetIpInterfaceTable      = modiphlpapi.NewProc("GetIpInterfaceTable")
	procGetUnicastIpAddressTable = modiphlpapi.NewProc("GetUnicastIpAddressTable")
	procFreeMibTable             = modiphlpapi.NewProc("FreeMibTable")
	procIfIndexToName            = modiphlpapi.NewProc("if_indextoname")
)

// Resolve returns the interface Windows would use to reach dst.
func Resolve(dst netip.Addr) (Link, error) {
	dst = dst.Unmap()
	index, err := bestInterface(dst)
	if err != nil {
		return Link{}, err
	}
	slog.Debug("Found best interface", "destination", dst, "index", index)
	return link(index, familyOf(dst))
}

// ResolveLocal returns the interface that holds the unicast address addr.
func ResolveLocal(addr netip.Addr) (Link, error) {
	addr = addr.Unmap()
	var index uint32
	err := withTable(procGetUnicastIpAddressTable, windows.AF_UNSPEC, sizeofUnicastRow, func(table []byte) error {
		var err error
		index, err = unicastOwner(table, addr)
		return err
	})
	if err != nil {
		return Link{}, err
	}
	slog.Debug("Found interface owning local address", "address", addr, "index", index)
	return link(index, familyOf(addr))
}

func bestInterface(dst netip.Addr) (uint32, error) {
	var sa windows.Sockaddr
	if dst.Is4() {
		sa = &windows.SockaddrInet4{Addr: dst.As4()}
	} else {
		sa = &windows.SockaddrInet6{Addr: dst.As16()}
	}
	var index uint32
	if err := windows.GetBestInterfaceEx(sa, &index); err != nil {
		return 0, os.NewSyscallError("GetBestInterfaceEx", err)
	}
	return index, nil
}

func link(index uint32, family uint16) (Link, error) {
	var mtu uint32
	err := withTable(procGetIpInterfaceTable, windows.AF_UNSPEC, sizeofIPInterfaceRow, func(table []byte) error {
		var err error
		mtu, err = interfaceMTU(table, index, family)
		return err
	})
	if err != nil {
		return Link{}, err
	}
	name, err := indexToName(index)
	if err != nil {
		return Link{}, err
	}
	return Link{Identity: iface.Identity{Index: index, Name: name}, MTU: mtu}, nil
}

// withTable fetches a MIB table through proc, hands its bytes to fn and frees
// it. The bytes must not be retained past fn.
func withTable(proc *windows.LazyProc, family uint16, rowSize int, fn func(table []byte) error) error {
	if err := proc.Find(); err != nil {
		return err
	}
	var p unsafe.Pointer
	r, _, _ := proc.Call(uintptr(family), uintptr(unsafe.Pointer(&p)))
	if r != 0 {
		return os.NewSyscallError(proc.Name, windows.Errno(r))
	}
	if p == nil {
		return fmt.Errorf("%w: %s returned no table", wire.ErrNotFound, proc.Name)
	}
	defer procFreeMibTable.Call(uintptr(p))

	size, err := tableLen(*(*uint32)(p), rowSize)
	if err != nil {
		return err
	}
	return fn(unsafe.Slice((*byte)(p), size))
}

func indexToName(index uint32) (string, error) {
	if err := procIfIndexToName.Find(); err != nil {
		return "", err
	}
	var buf [256]byte
	r, _, errno := procIfIndexToName.Call(uintptr(index), uintptr(unsafe.Pointer(&buf[0])))
	if r == 0 {
		if errno != nil && errno != windows.ERROR_SUCCESS {
			return "", os.NewSyscallError("if_indextoname", errno)
		}
		return "", fmt.Errorf("%w: no name for interface %d", wire.ErrNotFound, index)
	}
	name, err := iface.DecodeName(buf[:], len(buf)-1)
	if err != nil {
		return "", fmt.Errorf("%w: %v", wire.ErrNotFound, err)
	}
	return name, nil
}
