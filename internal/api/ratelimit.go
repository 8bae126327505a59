package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cflp/internal/metrics"
)

const limiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// tenantLimiter keeps one token bucket per tenant. A zero rate disables it.
type tenantLimiter struct {
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func newTenantLimiter(rps float64, burst int) *tenantLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &tenantLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		visitors:  map[string]*visitor{},
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *tenantLimiter) enabled() bool { return l != nil && l.limit > 0 }

func (l *tenantLimiter) allow(tenant string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > 3*limiterIdle {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}
	v, ok := l.visitors[tenant]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[tenant] = v
	}
	v.lastSeen = now
	r := v.limiter.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// rateLimitMiddleware throttles /v1 endpoints per tenant.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.enabled() || len(r.URL.Path) < 4 || r.URL.Path[:4] != "/v1/" {
			next.ServeHTTP(w, r)
			return
		}
		p, ok := s.getPrincipal(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if allowed, wait := s.limiter.allow(p.Tenant); !allowed {
			metrics.RateLimited.WithLabelValues(p.Tenant).Inc()
			secs := int(wait.Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "tenant rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
