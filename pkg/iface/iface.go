package iface

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

// NameSize is IF_NAMESIZE on Linux and the BSDs: the name plus its terminating NUL.
const NameSize = 16

// Identity identifies a network interface. Index is assigned by the kernel and
// is only stable for the current boot.
type Identity struct {
	Index uint32
	Name  string
}

var (
	errEmptyName   = errors.New("empty interface name")
	errInvalidName = errors.New("interface name is not valid UTF-8")
)

// DecodeName turns raw name bytes from a kernel message into a string.
//
// Some kernels NUL-terminate the name (netlink IFLA_IFNAME, if_indextoname) and
// some don't (sockaddr_dl carries an explicit length). When a NUL is present
// the name ends there, otherwise every byte belongs to the name. maxLen bounds
// the decoded name in bytes, excluding any terminator.
func DecodeName(b []byte, maxLen int) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	switch {
	case len(b) == 0:
		return "", errEmptyName
	case len(b) > maxLen:
		return "", fmt.Errorf("interface name of %d bytes exceeds limit of %d", len(b), maxLen)
	case !utf8.Valid(b):
		return "", errInvalidName
	}
	return string(b), nil
}
