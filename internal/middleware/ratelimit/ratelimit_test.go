package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request should be denied")
	}

	// Another client has its own window.
	if !rl.Allow("5.6.7.8") {
		t.Fatal("different client should be allowed")
	}

	m := rl.GetMetrics()
	if m.TotalDenied != 1 {
		t.Errorf("expected 1 denied request, got %d", m.TotalDenied)
	}
	if m.ClientCount != 2 {
		t.Errorf("expected 2 tracked clients, got %d", m.ClientCount)
	}
}

func TestLimiterWindowReset(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request should be denied")
	}

	// Age the client entry past the window.
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.Allow("1.2.3.4") {
		t.Fatal("request after window reset should be allowed")
	}
}
