package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3") // evicts a

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Errorf("unexpected value for b: %q ok=%v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("k", 42)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("expected hit before expiry, got %d ok=%v", v, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestLRUCacheInvalidatePrefix(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	c.Set("alice|expense|week", "a")
	c.Set("alice|income|all", "b")
	c.Set("bob|expense|week", "c")

	removed := c.InvalidatePrefix("alice|")
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if _, ok := c.Get("alice|expense|week"); ok {
		t.Error("alice entry should be gone")
	}
	if _, ok := c.Get("bob|expense|week"); !ok {
		t.Error("bob entry should survive")
	}
}
