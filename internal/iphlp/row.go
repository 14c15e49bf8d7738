// Package iphlp finds interfaces through the Windows IP Helper API.
//
// The MIB tables returned by iphlpapi.dll are read as raw bytes. The row
// parsers in this file only depend on the documented struct layouts, so they
// build and test on every platform.
package iphlp

import (
	"fmt"
	"net/netip"

	"github.com/tkjaer/ifmtu/internal/wire"
	"github.com/tkjaer/ifmtu/pkg/iface"
)

// Address families from ws2def.h.
const (
	afInet  = 2
	afInet6 = 23
)

// MIB_*_TABLE is a ULONG count followed by 8-byte aligned rows.
const tableHeaderLen = 8

// MIB_IPINTERFACE_ROW
const (
	sizeofIPInterfaceRow = 168
	ipInterfaceOffFamily = 0
	ipInterfaceOffIndex  = 16
	ipInterfaceOffMTU    = 152
)

// MIB_UNICASTIPADDRESS_ROW, which starts with a SOCKADDR_INET.
const (
	sizeofUnicastRow = 80
	unicastOffIndex  = 40
	sockaddrOffAddr4 = 4
	sockaddrOffAddr6 = 8
)

// Link is an interface found through IP Helper. Windows reports the MTU of
// some interfaces, loopback among them, as 4294967295.
type Link struct {
	iface.Identity
	MTU uint32
}

// tableLen returns the size in bytes of a table holding n rows.
func tableLen(n uint32, rowSize int) (int, error) {
	size := uint64(tableHeaderLen) + uint64(n)*uint64(rowSize)
	if err := wire.Invariant(size <= 1<<31-1, "MIB table of %d rows of %d bytes", n, rowSize); err != nil {
		return 0, err
	}
	return int(size), nil
}

// rows calls fn for each row of a MIB table until fn returns false.
func rows(table []byte, rowSize int, fn func(row []byte) bool) error {
	n, err := wire.Uint32At(table, 0)
	if err != nil {
		return err
	}
	c := wire.NewCursor(table)
	if err := c.Skip(tableHeaderLen); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		row, err := c.Next(rowSize)
		if err != nil {
			return fmt.Errorf("%w: row %d of %d", err, i, n)
		}
		if !fn(row) {
			return nil
		}
	}
	return nil
}

func familyOf(a netip.Addr) uint16 {
	if a.Unmap().Is4() {
		return afInet
	}
	return afInet6
}

// interfaceMTU returns NlMtu for index from a MIB_IPINTERFACE_TABLE. Each
// interface has one row per address family, and the row for family wins over
// one of the other family.
func interfaceMTU(table []byte, index uint32, family uint16) (uint32, error) {
	var (
		mtu   uint32
		found bool
	)
	err := rows(table, sizeofIPInterfaceRow, func(row []byte) bool {
		idx, _ := wire.Uint32At(row, ipInterfaceOffIndex)
		if idx != index {
			return true
		}
		fam, _ := wire.Uint16At(row, ipInterfaceOffFamily)
		if found && fam != family {
			return true
		}
		mtu, _ = wire.Uint32At(row, ipInterfaceOffMTU)
		found = true
		return fam != family
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: interface %d not in interface table", wire.ErrNotFound, index)
	}
	return mtu, nil
}

// unicastOwner returns the index of the interface holding addr according to a
// MIB_UNICASTIPADDRESS_TABLE.
func unicastOwner(table []byte, addr netip.Addr) (uint32, error) {
	addr = addr.Unmap().WithZone("")
	var (
		index uint32
		found bool
	)
	err := rows(table, sizeofUnicastRow, func(row []byte) bool {
		fam, _ := wire.Uint16At(row, 0)
		var a netip.Addr
		switch fam {
		case afInet:
			a = netip.AddrFrom4([4]byte(row[sockaddrOffAddr4 : sockaddrOffAddr4+4]))
		case afInet6:
			a = netip.AddrFrom16([16]byte(row[sockaddrOffAddr6 : sockaddrOffAddr6+16]))
		default:
			return true
		}
		if a != addr {
			return true
		}
		index, _ = wire.Uint32At(row, unicastOffIndex)
		found = true
		return false
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: no interface owns %s", wire.ErrNotFound, addr)
	}
	return index, nil
}
