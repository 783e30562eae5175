package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/auth"
)

// tenantLimiter keeps one token bucket per tenant. Untenanted calls share the
// bucket stored under the empty key.
type tenantLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func (l *tenantLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// RateLimit rejects requests over rps per tenant with 429. It must run after
// TenantAuth. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := &tenantLimiter{limiters: make(map[string]*rate.Limiter), rps: rate.Limit(rps), burst: burst}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if tenant := auth.TenantFromContext(r.Context()); tenant != nil {
				key = tenant.TenantID
			}
			if !limiter.get(key).Allow() {
				if m != nil {
					m.RateLimited.Inc()
				}
				logger.Warn("rate limit exceeded", "tenant_id", key)
				handler.RespondError(w, logger, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
