package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Stale buckets are pruned once enough traffic has passed through;
// pruning on a call counter keeps allow() free of timers.
const (
	pruneEvery   = 1 << 10
	idleEviction = 10 * time.Minute
)

// throttle keeps one token bucket per client IP.
type throttle struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	refill  rate.Limit
	burst   int
	calls   int
}

type clientBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// newThrottle builds a per-IP throttle refilling perSecond tokens up to burst.
func newThrottle(perSecond float64, burst int) *throttle {
	return &throttle{
		buckets: make(map[string]*clientBucket),
		refill:  rate.Limit(perSecond),
		burst:   burst,
	}
}

func (t *throttle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()

	t.calls++
	if t.calls >= pruneEvery {
		t.calls = 0
		for addr, b := range t.buckets {
			if now.Sub(b.seen) > idleEviction {
				delete(t.buckets, addr)
			}
		}
	}

	b := t.buckets[ip]
	if b == nil {
		b = &clientBucket{limiter: rate.NewLimiter(t.refill, t.burst)}
		t.buckets[ip] = b
	}
	b.seen = now
	return b.limiter.Allow()
}

// withThrottle rejects requests from IPs that have drained their bucket.
func withThrottle(t *throttle, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r)
			if !t.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP strips the port from RemoteAddr. Proxy headers are not consulted;
// a fronting proxy is expected to rewrite RemoteAddr.
func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
