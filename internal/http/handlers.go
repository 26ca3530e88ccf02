package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"bilancio/internal/core"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	data := struct {
		Today string
		Owner string
	}{
		Today: now.Format("2006-01-02"),
		Owner: OwnerFromContext(r.Context()),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleHealth answers liveness probes. It says nothing about storage;
// that is what the readiness endpoint is for.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).String(),
	})
}

// handleReady answers readiness probes by touching the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ready := true
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		ready = false
	} else {
		checks["templates"] = "ok"
	}

	// A category listing is the cheapest read every store supports.
	if s.store == nil {
		checks["store"] = "not_configured"
		ready = false
	} else if _, err := s.store.ListCategories(ctx, "_readyz", core.KindExpense); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		ready = false
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{
		"status":           "ok",
		"summary_entries":  s.summaryCache.Size(),
		"record_entries":   s.recordCache.Size(),
		"category_entries": s.categoryCache.Size(),
	}
	checks["rate_limiter"] = map[string]any{
		"status":         "ok",
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// metricHeader writes the HELP and TYPE lines for one series.
func metricHeader(w io.Writer, name, kind, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func counter(w io.Writer, name, help string, v int64) {
	metricHeader(w, name, "counter", help)
	fmt.Fprintf(w, "%s %d\n\n", name, v)
}

func gauge(w io.Writer, name, help string, v int64) {
	metricHeader(w, name, "gauge", help)
	fmt.Fprintf(w, "%s %d\n\n", name, v)
}

// handleMetrics renders the counters in Prometheus exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traffic := s.traceMiddleware.GetMetrics()
	limits := s.rateLimiter.GetMetrics()
	security := s.detector.GetMetrics()

	counter(w, "http_requests_total", "Total number of HTTP requests", traffic.TotalRequests)
	gauge(w, "http_request_duration_avg_us", "Average request duration in microseconds", traffic.AverageResponseTime)

	counter(w, "records_created_total", "Total number of records created", atomic.LoadInt64(&s.metrics.recordsCreated))
	counter(w, "records_deleted_total", "Total number of records deleted", atomic.LoadInt64(&s.metrics.recordsDeleted))
	counter(w, "cache_hits_total", "Total cache hits", atomic.LoadInt64(&s.metrics.cacheHits))
	counter(w, "cache_misses_total", "Total cache misses", atomic.LoadInt64(&s.metrics.cacheMisses))

	metricHeader(w, "cache_entries", "gauge", "Current cache entries")
	fmt.Fprintf(w, "cache_entries{type=%q} %d\n", "summary", s.summaryCache.Size())
	fmt.Fprintf(w, "cache_entries{type=%q} %d\n", "records", s.recordCache.Size())
	fmt.Fprintf(w, "cache_entries{type=%q} %d\n\n", "categories", s.categoryCache.Size())

	counter(w, "rate_limit_denied_total", "Total requests denied by the rate limiter", limits.TotalDenied)
	gauge(w, "active_rate_limit_clients", "Currently tracked rate limit clients", limits.ClientCount)
	counter(w, "suspicious_requests_total", "Total suspicious requests detected", security.SuspiciousRequests)
	counter(w, "invalid_ip_attempts_total", "Client IPs that failed to parse", security.InvalidIPAttempts)

	gauge(w, "uptime_seconds", "Application uptime in seconds", int64(time.Since(s.metrics.startedAt).Seconds()))
}
