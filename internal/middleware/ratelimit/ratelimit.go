// Package ratelimit caps request rates per client IP. The window is a fixed
// minute per client, which is coarse but cheap and good enough to blunt
// scripted abuse of a small app.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds rate limiter settings.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig allows 60 requests per minute per client.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter tracks request counts per client IP.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*bucket
	done     chan struct{}
	stopOnce sync.Once

	totalDenied int64

	perMinute  int
	sweepEvery time.Duration
}

type bucket struct {
	lastRequest time.Time
	count       int
}

// NewLimiter builds a limiter and starts its cleanup goroutine. Call Stop
// when done with it.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	rl := &Limiter{
		clients:    make(map[string]*bucket),
		done:       make(chan struct{}),
		perMinute:  config.RequestsPerMinute,
		sweepEvery: config.CleanupInterval,
	}
	go rl.sweepLoop()
	return rl
}

// Allow reports whether a request from clientIP fits the per-minute budget.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.lastRequest) > time.Minute {
		rl.clients[clientIP] = &bucket{lastRequest: now, count: 1}
		return true
	}

	client.count++
	client.lastRequest = now
	if client.count > rl.perMinute {
		atomic.AddInt64(&rl.totalDenied, 1)
		return false
	}
	return true
}

// Middleware rejects over-limit requests before they reach the handler.
// onLimit, when set, renders the rejection; otherwise a plain 429 goes out.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(extractIP(r)) {
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *Limiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweepIdle()
		case <-rl.done:
			return
		}
	}
}

// sweepIdle forgets clients quiet for over 10 minutes, keeping the
// map bounded by recent traffic rather than total uptime.
func (rl *Limiter) sweepIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// ActiveClients returns how many clients are currently tracked.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Metrics is a snapshot for the metrics endpoint.
type Metrics struct {
	TotalDenied int64
	ClientCount int64
}

// GetMetrics returns current counters.
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalDenied: atomic.LoadInt64(&rl.totalDenied),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
}
