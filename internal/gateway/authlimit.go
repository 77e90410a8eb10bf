package gateway

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
	authRateMaxIPs   = 10000
	authRateSweep    = time.Minute
)

// authRateLimiter counts failed credential checks per remote host. A host
// with authRateMaxFails failures inside authRateWindow is refused until the
// oldest of them ages out. The least recently failing host is dropped once
// authRateMaxIPs are tracked; sweepLoop forgets hosts whose failures have
// all aged out.
type authRateLimiter struct {
	mu       sync.Mutex
	failures *expirable.LRU[string, []time.Time]
	now      func() time.Time
}

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{
		// No TTL: the LRU would start a sweeper goroutine that never stops.
		failures: expirable.NewLRU[string, []time.Time](authRateMaxIPs, nil, 0),
		now:      time.Now,
	}
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}

// recent returns the failures for host still inside the window. Callers
// hold l.mu.
func (l *authRateLimiter) recent(host string) []time.Time {
	times, ok := l.failures.Peek(host)
	if !ok {
		return nil
	}
	cutoff := l.now().Add(-authRateWindow)
	kept := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := remoteHost(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.recent(host)
	if len(kept) == 0 {
		l.failures.Remove(host)
		return true
	}
	return len(kept) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := remoteHost(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures.Add(host, append(l.recent(host), l.now()))
}

// sweep drops every host with no failure inside the window.
func (l *authRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, host := range l.failures.Keys() {
		if len(l.recent(host)) == 0 {
			l.failures.Remove(host)
		}
	}
}

// sweepLoop runs sweep every period until ctx is done.
func (l *authRateLimiter) sweepLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// tracked reports how many hosts currently have failures on record.
func (l *authRateLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures.Len()
}
