//go:build darwin || freebsd || netbsd || openbsd

package mtu

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/tkjaer/ifmtu/internal/rtsock"
	"github.com/tkjaer/ifmtu/internal/seq"
)

type routeSocket interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Variables for mocking in tests.
var (
	openRouteSocket = func() (routeSocket, error) {
		f, err := rtsock.Open()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	linkMTU   = rtsock.LinkMTU
	localLink = rtsock.LocalLink
	layout    = rtsock.Native
)

// resolve sends RTM_GET for dst. The reply names the outgoing interface and
// usually carries the path MTU in its metrics. When it doesn't, the link MTU
// is read from the interface list instead.
func resolve(ctx context.Context, dst netip.Addr) (Interface, error) {
	s, err := openRouteSocket()
	if err != nil {
		return Interface{}, err
	}
	defer s.Close()

	if err := s.SetReadDeadline(deadline(ctx)); err != nil {
		return Interface{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		// Wake up a pending Read.
		s.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	req, err := layout.EncodeGet(dst, seq.Next())
	if err != nil {
		return Interface{}, err
	}
	reply, err := layout.Exchange(s, req, os.Getpid())
	if err != nil {
		return Interface{}, err
	}
	link, err := layout.ParseGet(reply)
	if err != nil {
		return Interface{}, err
	}
	slog.Debug("Route lookup done", "destination", dst, "interface", link.Name, "index", link.Index, "mtu", link.MTU)

	if link.MTU == 0 {
		slog.Debug("Route carries no MTU, reading interface list", "interface", link.Name)
		if link.MTU, err = linkMTU(link.Name); err != nil {
			return Interface{}, err
		}
	}
	return newInterface(link.Name, link.MTU)
}

// resolveLocal finds the interface holding addr in the interface list.
func resolveLocal(ctx context.Context, addr netip.Addr) (Interface, error) {
	link, err := localLink(addr)
	if err != nil {
		return Interface{}, err
	}
	if link.MTU == 0 {
		return Interface{}, fmt.Errorf("%w: interface %s has no MTU", ErrNotFound, link.Name)
	}
	return newInterface(link.Name, link.MTU)
}
