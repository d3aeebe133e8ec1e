package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "mobilid/pkg/domain-errors"
	"mobilid/pkg/platform/httputil"
	"mobilid/pkg/requestcontext"
)

// Limiter admits a fixed number of requests per client IP and window.
type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type LimiterOption func(*Limiter)

func WithLogger(l *slog.Logger) LimiterOption {
	return func(lim *Limiter) { lim.logger = l }
}

func WithMetrics(m *Metrics) LimiterOption {
	return func(lim *Limiter) { lim.metrics = m }
}

func NewLimiter(store Store, limit int, window time.Duration, opts ...LimiterOption) *Limiter {
	l := &Limiter{store: store, limit: limit, window: window, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware limits requests under scope. It needs the client metadata
// middleware upstream for the IP. Store failures let the request through.
func (l *Limiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			res, err := l.store.AllowN(ctx, scope+":"+ip, 1, l.limit, l.window)
			if err != nil {
				l.logger.ErrorContext(ctx, "rate limit check failed", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				l.metrics.incrementRejection(scope)
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
