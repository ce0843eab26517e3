package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// ipLimiter hands out one token bucket per client IP.
type ipLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*rate.Limiter
	rate       rate.Limit
	burst      int
	trustProxy bool
}

func newIPLimiter(perSecond float64, burst int, trustProxy bool) *ipLimiter {
	return &ipLimiter{
		buckets:    make(map[string]*rate.Limiter),
		rate:       rate.Limit(perSecond),
		burst:      burst,
		trustProxy: trustProxy,
	}
}

func (l *ipLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.buckets[ip]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.buckets[ip] = lim
	}
	return lim
}

func (l *ipLimiter) allow(r *http.Request) bool {
	return l.limiter(l.clientIP(r)).Allow()
}

// middleware rejects over-limit API requests with 429. Probe and metrics
// paths are never limited.
func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address for bucketing. When trustProxy is
// set, the leftmost X-Forwarded-For entry and X-Real-IP are consulted before
// RemoteAddr. Only set trustProxy behind a reverse proxy that strips inbound
// forwarding headers.
func (l *ipLimiter) clientIP(r *http.Request) string {
	if l.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexByte(xff, ','); i > 0 {
				xff = xff[:i]
			}
			if ip := strings.TrimSpace(xff); ip != "" {
				return ip
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
