//go:build darwin || freebsd || netbsd || openbsd

package rtsock

import (
	"os"

	"golang.org/x/sys/unix"
)

// Open creates a raw routing socket. The returned file is non-blocking and
// registered with the runtime poller, so SetReadDeadline applies to it.
func Open() (*os.File, error) {
	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setnonblock", err)
	}
	return os.NewFile(uintptr(fd), "route"), nil
}
