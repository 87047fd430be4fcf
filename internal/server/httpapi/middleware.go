package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// httpObserver receives one observation per finished request.
type httpObserver interface {
	ObserveHTTP(method string, code int, elapsed time.Duration)
}

// statusWriter captures the status code and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status  int
	size    int
	written bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.status = code
		sw.written = true
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

// requestLogger logs every request once it completes and feeds obs, if set.
func requestLogger(logger logging.Logger, obs httpObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			if obs != nil {
				obs.ObserveHTTP(r.Method, sw.status, elapsed)
			}

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.size,
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			}
			switch {
			case sw.status >= 500:
				logger.Error(r.Context(), "request completed", args...)
			case sw.status >= 400:
				logger.Warn(r.Context(), "request completed", args...)
			default:
				logger.Info(r.Context(), "request completed", args...)
			}
		})
	}
}

// limiterIdleTTL is how long an unused bucket is kept. It exceeds the time
// any bucket needs to refill, so a dropped bucket and a new one are equal.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out one token bucket per signed-in user. Buckets idle
// for longer than limiterIdleTTL are evicted, so the map only holds callers
// active in the last few minutes.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	rl.sweep(now)
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// sweep runs at most once per limiterIdleTTL. Callers hold rl.mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < limiterIdleTTL {
		return
	}
	rl.lastSweep = now
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, k)
		}
	}
}

// middleware rejects callers over their budget with 429. Anonymous callers
// are keyed by remote address.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if s := auth.SessionFrom(r.Context()); s.Authenticated() {
			key = s.Identity.ID
		}
		if !rl.allow(key) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, http.StatusTooManyRequests, CodeRateLimited, "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// provisionExternal makes sure a principal vouched for by an external
// identity provider has a local record before handlers address it by ID.
func (a *API) provisionExternal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := auth.SessionFrom(r.Context()); s.Authenticated() && s.Identity.Provider != "" {
			if _, err := a.identities.EnsureExternal(r.Context(), s.Identity); err != nil {
				a.fail(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
