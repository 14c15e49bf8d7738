//go:build linux

package nlroute

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/tkjaer/ifmtu/internal/wire"
	"golang.org/x/sys/unix"
)

// maxReceives bounds the number of reads spent waiting for one reply.
const maxReceives = 64

// Conn is the part of *netlink.Conn an exchange needs.
type Conn interface {
	Send(m netlink.Message) (netlink.Message, error)
	Receive() ([]netlink.Message, error)
}

// Exchange sends req on c and returns the first reply of type want that
// carries req's sequence number. Replies to other requests are skipped. An
// error frame for req ends the exchange with the kernel's errno.
func Exchange(c Conn, req netlink.Message, want netlink.HeaderType) (netlink.Message, error) {
	if _, err := c.Send(req); err != nil {
		return netlink.Message{}, err
	}
	slog.Debug("Sent netlink request", "type", req.Header.Type, "seq", req.Header.Sequence, "len", req.Header.Length)

	for range maxReceives {
		msgs, err := c.Receive()
		if err != nil {
			return netlink.Message{}, err
		}
		if len(msgs) == 0 {
			return netlink.Message{}, io.ErrUnexpectedEOF
		}
		for _, m := range msgs {
			ok, err := match(m, req.Header.Sequence, want)
			if err != nil {
				return netlink.Message{}, err
			}
			if ok {
				return m, nil
			}
		}
	}
	return netlink.Message{}, fmt.Errorf("%w: no reply to netlink sequence %d after %d reads",
		wire.ErrNotFound, req.Header.Sequence, maxReceives)
}

// match reports whether m answers the request with sequence seq.
func match(m netlink.Message, seq uint32, want netlink.HeaderType) (bool, error) {
	if m.Header.Sequence != seq {
		slog.Debug("Discarding netlink message for another request",
			"type", m.Header.Type, "seq", m.Header.Sequence, "want_seq", seq)
		return false, nil
	}
	switch m.Header.Type {
	case want:
		return true, nil
	case netlink.Error:
		if len(m.Data) < 4 {
			return false, fmt.Errorf("%w: short netlink error message", wire.ErrTruncated)
		}
		if code := nlenc.Int32(m.Data[0:4]); code != 0 {
			return false, unix.Errno(-code)
		}
		// The data reply always precedes the acknowledgement.
		return false, fmt.Errorf("%w: request %d acknowledged without a reply", wire.ErrNotFound, seq)
	case netlink.Done:
		return false, fmt.Errorf("%w: request %d finished without a reply", wire.ErrNotFound, seq)
	default:
		slog.Debug("Discarding unexpected netlink message", "type", m.Header.Type, "seq", seq)
		return false, nil
	}
}
