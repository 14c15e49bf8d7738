package rtsock

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tkjaer/ifmtu/internal/wire"
)

// maxReads bounds the number of messages read while waiting for one reply.
const maxReads = 64

// Exchange writes req to rw and returns the reply carrying pid and req's
// sequence number. Routing messages from other processes are skipped.
func (l Layout) Exchange(rw io.ReadWriter, req []byte, pid int) ([]byte, error) {
	seq, err := wire.Uint32At(req, l.OffSeq)
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(req); err != nil {
		return nil, err
	}
	slog.Debug("Sent RTM_GET", "seq", seq, "pid", pid, "len", len(req))

	buf := make([]byte, l.ReadBufferLen())
	for range maxReads {
		n, err := rw.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, io.ErrUnexpectedEOF
		}
		msg, ok, err := l.Match(buf[:n], pid, seq)
		if err != nil {
			return nil, err
		}
		if ok {
			slog.Debug("Matched RTM_GET reply", "seq", seq, "len", len(msg))
			return msg, nil
		}
		slog.Debug("Discarding routing message", "len", n, "type", typeOf(buf[:n]))
	}
	return nil, fmt.Errorf("%w: no reply to RTM_GET %d after %d reads", wire.ErrNotFound, seq, maxReads)
}

func typeOf(b []byte) int {
	if len(b) < 4 {
		return -1
	}
	return int(b[3])
}
