// Package trace stamps every request with an ID, logs request start and
// completion, and keeps running latency counters for the metrics endpoint.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// Middleware traces requests. One instance serves the whole mux so the
// counters add up across handlers.
type Middleware struct {
	extractIP func(*http.Request) string

	totalRequests int64
	totalDuration int64 // microseconds
}

// Metrics is a snapshot of request counters.
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware builds the tracer. extractIP may be nil when client IPs are
// not of interest.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware wraps next with request-scoped logging and timing.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := newRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)

		var clientIP string
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		slog.InfoContext(ctx, "HTTP request started",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", id,
			"query", r.URL.RawQuery,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"),
			"content_length", r.ContentLength)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		took := time.Since(start)
		atomic.AddInt64(&m.totalRequests, 1)
		atomic.AddInt64(&m.totalDuration, took.Microseconds())

		slog.Log(ctx, levelFor(rec.status), "HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", id,
			"query", r.URL.RawQuery,
			"status_code", rec.status,
			"duration_ms", took.Milliseconds(),
			"duration_human", took.String(),
			"client_ip", clientIP,
			"success", rec.status < 400)
	})
}

// levelFor maps 4xx to warning and 5xx to error so failed requests stand
// out without grepping status codes.
func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// statusRecorder keeps the status code a handler wrote, defaulting to 200
// for handlers that never call WriteHeader.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func newRequestID() string {
	return uuid.NewString()
}

// GetRequestID returns the request ID stored by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current counters.
func (m *Middleware) GetMetrics() Metrics {
	total := atomic.LoadInt64(&m.totalRequests)
	var avg int64
	if total > 0 {
		avg = atomic.LoadInt64(&m.totalDuration) / total
	}
	return Metrics{
		TotalRequests:       total,
		AverageResponseTime: avg,
	}
}
