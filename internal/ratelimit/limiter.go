// Package ratelimit provides the fixed-window limiters that sit in front of
// the gate channels.  Limiters are injected; nothing here is process-global.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// Policy is a request budget per client key per window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// GateAccess matches the lenient budget used for gate hardware: 60 per minute.
var GateAccess = Policy{Limit: 60, Window: time.Minute}

// Result describes the state of a key's window after a call to Allow.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to whole
// seconds and never below one.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= time.Second {
		return time.Second
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// Limiter decides whether one more request for key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(r *http.Request) string

// RemoteHostKey keys on the host of the TCP peer.  Request headers are
// client-controlled and ignored.
func RemoteHostKey(r *http.Request) string {
	return "ip:" + HostOnly(r.RemoteAddr)
}

// ForwardedKey reads X-Forwarded-For only when the peer is one of trusted.
// The header is walked right to left, skipping trusted hops, and the first
// untrusted address is the key.  Entries left of it were written by the
// client and are never used.
func ForwardedKey(trusted []netip.Prefix) KeyFunc {
	if len(trusted) == 0 {
		return RemoteHostKey
	}
	isTrusted := func(a netip.Addr) bool {
		a = a.Unmap()
		for _, p := range trusted {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer, err := netip.ParseAddr(HostOnly(r.RemoteAddr))
		if err != nil || !isTrusted(peer) {
			return RemoteHostKey(r)
		}

		hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !isTrusted(a) {
				return "ip:" + a.Unmap().String()
			}
		}
		return RemoteHostKey(r)
	}
}

// ParseTrustedProxies accepts CIDRs and bare addresses.
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// HostOnly strips the port from addr if it has one.
func HostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}
