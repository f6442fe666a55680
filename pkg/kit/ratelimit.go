package kit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IPRateLimiter allows limit requests per client IP within a sliding window.
type IPRateLimiter struct {
	// TrustForwardedFor keys clients by the last X-Forwarded-For hop, the
	// one appended by the proxy in front of us. Leave it off when clients
	// reach the server directly: they control that header.
	TrustForwardedFor bool

	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Middleware rejects requests over the limit with 429 and reports the
// remaining budget in RateLimit-* headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := l.now()
		remaining, reset, limited := l.recordAndCheck(l.clientIP(r), now)

		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(l.limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(seconds(reset)))

		if limited {
			h.Set("Retry-After", strconv.Itoa(seconds(reset)))
			WriteError(w, r, http.StatusTooManyRequests, "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recordAndCheck records a hit for ip unless the window is full. It
// returns the remaining budget and the time until the oldest hit expires.
func (l *IPRateLimiter) recordAndCheck(ip string, now time.Time) (remaining int, reset time.Duration, limited bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	l.sweep(now, cutoff)

	ts := prune(l.hits[ip], cutoff)

	if len(ts) >= l.limit {
		l.hits[ip] = ts
		return 0, ts[0].Add(l.window).Sub(now), true
	}

	ts = append(ts, now)
	l.hits[ip] = ts
	return l.limit - len(ts), ts[0].Add(l.window).Sub(now), false
}

// sweep drops clients with no hits inside the window, at most once per
// window. Callers hold mu.
func (l *IPRateLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	for ip, ts := range l.hits {
		if ts = prune(ts, cutoff); len(ts) == 0 {
			delete(l.hits, ip)
		} else {
			l.hits[ip] = ts
		}
	}
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	n := 0
	for _, t := range ts {
		if t.After(cutoff) {
			ts[n] = t
			n++
		}
	}
	return ts[:n]
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func (l *IPRateLimiter) clientIP(r *http.Request) string {
	if l.TrustForwardedFor {
		if ip := lastForwardedFor(r.Header.Values("X-Forwarded-For")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}

// lastForwardedFor returns the rightmost hop across all X-Forwarded-For
// header lines.
func lastForwardedFor(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if j := strings.LastIndexByte(v, ','); j >= 0 {
			v = v[j+1:]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
