// Package admission implements the HTTP admission layer: API-key write
// guard, per-IP rate limiting, and request-id propagation with access
// logging (spec.md section 4.5).
package admission

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/agent-registry/internal/httperr"
	"github.com/sage-x-project/agent-registry/logger"
)

var writeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// openPaths lists routes that are POSTs by shape but reads by spec.md's
// auth table ("none (read)") — discovery is a query, not a mutation, and
// must stay reachable without an API key even when one is configured.
var openPaths = map[string]bool{
	"/v1/agent/discovery": true,
}

// Guard wires the full admission chain around an http.Handler: request-id
// and access logging first, then rate limiting, then the API-key guard.
// Order matches spec.md: "the limiter runs before the API-key guard."
type Guard struct {
	apiKey  string
	limiter *RateLimiter
	log     *logger.Logger
}

// NewGuard constructs the admission chain. apiKey may be empty, in which
// case writes are never rejected for missing credentials.
func NewGuard(apiKey string, limiter *RateLimiter, log *logger.Logger) *Guard {
	return &Guard{apiKey: apiKey, limiter: limiter, log: log}
}

// Wrap applies request-id handling, access logging, rate limiting, and the
// API-key guard around next, in that order.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return g.withRequestID(g.withRateLimit(g.withAPIKey(next)))
}

func (g *Guard) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := firstNonEmpty(r.Header.Get("x-request-id"), r.Header.Get("x-correlation-id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("x-request-id", reqID)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		g.log.WithRequestID(reqID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	})
}

func (g *Guard) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		result := g.limiter.Allow(ip, time.Now())
		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(result.RetryAfter)))
			httperr.Write(w, httperr.New(httperr.RateLimited, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.apiKey == "" || !writeMethods[r.Method] || openPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-api-key") != g.apiKey {
			httperr.Write(w, httperr.New(httperr.Unauthorized, "missing or invalid api key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the request's IP per spec.md: first entry of
// X-Forwarded-For when present, else the transport peer address, else
// "unknown".
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("x-forwarded-for"); fwd != "" {
		parts := strings.Split(fwd, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
