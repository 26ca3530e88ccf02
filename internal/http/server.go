package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	appweb "bilancio/web"
)

// Options carries the server knobs that come from configuration.
type Options struct {
	// AuthSecret enables bearer-token auth when non-empty.
	AuthSecret string
	// DefaultOwner backs requests that carry no identity in dev mode.
	DefaultOwner string
}

type Server struct {
	http.Server
	templates *template.Template
	store     backend.Backend
	owners    *ownerResolver

	// Derived views are cached per owner+kind+window; writes for an owner
	// invalidate that owner's entries.
	summaryCache  *cache.LRUCache[core.Summary]
	recordCache   *cache.LRUCache[[]core.Record]
	categoryCache *cache.LRUCache[[]string]
	cacheManager  *cache.Manager
	flight        singleflight.Group

	traceMiddleware *trace.Middleware
	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector

	metrics      appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	startedAt      time.Time
	recordsCreated int64
	recordsDeleted int64
	cacheHits      int64
	cacheMisses    int64
}

// NewServer configures routes, middleware, and templates, returning a
// ready-to-run server backed by the given record store.
func NewServer(addr string, store backend.Backend, opts Options) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	traceMw := trace.NewMiddleware(detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	owners := newOwnerResolver(opts.AuthSecret, opts.DefaultOwner)
	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)

	s := &Server{
		store:           store,
		owners:          owners,
		summaryCache:    cache.NewLRUCache[core.Summary](100, 5*time.Minute),
		recordCache:     cache.NewLRUCache[[]core.Record](200, 5*time.Minute),
		categoryCache:   cache.NewLRUCache[[]string](100, 10*time.Minute),
		cacheManager:    cache.NewManager(),
		traceMiddleware: traceMw,
		rateLimiter:     limiter,
		detector:        detector,
		metrics:         appMetrics{startedAt: time.Now()},
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.recordCache)
	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Template errors should fail startup, not the first request.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets come from the embedded filesystem.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/entrate", s.handleCreateIncome)
	mux.HandleFunc("/uscite", s.handleCreateExpense)
	mux.HandleFunc("/records", s.handleRecords)
	mux.HandleFunc("/records/", s.handleDeleteRecord)
	mux.HandleFunc("/overview", s.handleOverview)
	mux.HandleFunc("/overview/data", s.handleOverviewData)
	mux.HandleFunc("/categories", s.handleCategories)

	// Outermost first: tracing wraps everything so every request gets an id
	// and a latency sample, then headers, detection, rate limiting, the
	// context logger, and finally owner resolution closest to the handlers.
	handler := http.Handler(mux)
	handler = owners.Middleware(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(logger)(handler)
	handler = limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = traceMw.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`<div class="error">Troppe richieste, riprova tra poco</div>`))
}

// handleRecords dispatches the /records collection route: GET lists, DELETE
// removes (id in the body, HTMX-style).
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRecords(w, r)
	case http.MethodDelete, http.MethodPost:
		s.handleDeleteRecord(w, r)
	default:
		MethodNotAllowedError("GET, DELETE, POST").Write(w)
	}
}

func cacheKey(owner string, kind core.Kind, w core.Window) string {
	return owner + "|" + string(kind) + "|" + w.String()
}

// getRecords returns the owner's records of one kind filtered to the window,
// serving from cache when possible. Concurrent misses for the same key
// collapse into a single fetch.
func (s *Server) getRecords(ctx context.Context, owner string, kind core.Kind, window core.Window) ([]core.Record, error) {
	key := cacheKey(owner, kind, window)
	if cached, ok := s.recordCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		out := make([]core.Record, len(cached))
		copy(out, cached)
		return out, nil
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	v, err, _ := s.flight.Do("records|"+key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
		defer cancel()
		all, err := s.store.ListRecords(cctx, owner, kind)
		if err != nil {
			return nil, fmt.Errorf("list records (owner=%s, kind=%s): %w", owner, kind, err)
		}
		filtered := core.FilterByWindow(all, time.Now(), window)
		s.recordCache.Set(key, filtered)
		return filtered, nil
	})
	if err != nil {
		return nil, err
	}

	records := v.([]core.Record)
	out := make([]core.Record, len(records))
	copy(out, records)
	return out, nil
}

// getSummary aggregates the windowed records into the per-category summary,
// cached under the same key family as the record lists.
func (s *Server) getSummary(ctx context.Context, owner string, kind core.Kind, window core.Window) (core.Summary, error) {
	key := cacheKey(owner, kind, window)
	if cached, ok := s.summaryCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		return copySummary(cached), nil
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	v, err, _ := s.flight.Do("summary|"+key, func() (interface{}, error) {
		records, err := s.getRecords(ctx, owner, kind, window)
		if err != nil {
			return core.Summary{}, err
		}
		summary := core.Aggregate(records)
		s.summaryCache.Set(key, summary)
		return summary, nil
	})
	if err != nil {
		return core.Summary{}, err
	}
	return copySummary(v.(core.Summary)), nil
}

func copySummary(s core.Summary) core.Summary {
	buckets := make([]core.Bucket, len(s.Buckets))
	copy(buckets, s.Buckets)
	return core.Summary{Total: s.Total, Buckets: buckets}
}

func (s *Server) getCategories(ctx context.Context, owner string, kind core.Kind) ([]string, error) {
	key := owner + "|" + string(kind)
	if cached, ok := s.categoryCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		out := make([]string, len(cached))
		copy(out, cached)
		return out, nil
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	v, err, _ := s.flight.Do("categories|"+key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
		defer cancel()
		cats, err := s.store.ListCategories(cctx, owner, kind)
		if err != nil {
			return nil, fmt.Errorf("list categories (owner=%s, kind=%s): %w", owner, kind, err)
		}
		s.categoryCache.Set(key, cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}

	cats := v.([]string)
	out := make([]string, len(cats))
	copy(out, cats)
	return out, nil
}

// invalidateOwner drops every cached view for one owner after a write. Keys
// are structured owner|kind|window, so the prefix catches them all.
func (s *Server) invalidateOwner(owner string) {
	prefix := owner + "|"
	removed := s.summaryCache.InvalidatePrefix(prefix)
	removed += s.recordCache.InvalidatePrefix(prefix)
	removed += s.categoryCache.InvalidatePrefix(prefix)
	if removed > 0 {
		slog.Debug("Invalidated cached views", "owner", owner, "entries", removed)
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
