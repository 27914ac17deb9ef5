package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/samjhill/dream-companion/internal/metrics"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// logRequests logs every request and counts it by matched route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// ServeMux sets Pattern on the request it dispatched. Unmatched
		// requests share one label.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// limiterIdle is how long an unused bucket is kept before eviction.
const limiterIdle = 10 * time.Minute

// userLimiter holds one token bucket per user, evicting buckets that have
// not been used for the idle period.
type userLimiter struct {
	limiters *gocache.Cache
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

func newUserLimiter(requestsPerSecond float64, burst int) *userLimiter {
	return newIdleUserLimiter(requestsPerSecond, burst, limiterIdle)
}

func newIdleUserLimiter(requestsPerSecond float64, burst int, idle time.Duration) *userLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &userLimiter{
		limiters: gocache.New(idle, idle),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether user may make a request now.
func (l *userLimiter) Allow(user string) bool {
	return l.get(user).Allow()
}

func (l *userLimiter) get(user string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters.Get(user)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
	}
	// Every use pushes the expiry back.
	l.limiters.SetDefault(user, limiter)
	return limiter.(*rate.Limiter)
}

// rateLimit rejects requests with 429 once the user named by the userParam
// path wildcard exceeds its budget.
func (s *Server) rateLimit(userParam string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.PathValue(userParam)
		if !s.limiter.Allow(user) {
			metrics.RateLimited.Inc()
			s.logger.Warn("rate limited", zap.String("user", user), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
