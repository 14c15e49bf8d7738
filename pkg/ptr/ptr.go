package ptr

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"
)

// Resolver handles PTR lookups with a small retry budget
type Resolver struct {
	lookupFunc func(ctx context.Context, addr string) ([]string, error)
	retries    int
	retryDelay time.Duration
}

// NewResolver creates a Resolver backed by the default DNS resolver
func NewResolver() *Resolver {
	return &Resolver{
		lookupFunc: net.DefaultResolver.LookupAddr,
		retries:    3,
		retryDelay: 100 * time.Millisecond,
	}
}

// Lookup returns the first PTR name for ip, without the trailing dot.
// A name that does not exist is not retried.
func (r *Resolver) Lookup(ctx context.Context, ip netip.Addr) (string, bool) {
	for attempt := range r.retries {
		names, err := r.lookupFunc(ctx, ip.String())
		if err == nil && len(names) > 0 {
			if name := normalizePTR(names[0]); name != "" {
				return name, true
			}
			return "", false
		}

		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return "", false
		}
		slog.Debug("PTR lookup failed", "ip", ip, "attempt", attempt+1, "err", err)

		if attempt == r.retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(r.retryDelay):
		}
	}
	return "", false
}

func normalizePTR(name string) string {
	return strings.TrimSuffix(name, ".")
}
