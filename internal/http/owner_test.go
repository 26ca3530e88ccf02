package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func ownerEcho(t *testing.T, resolver *ownerResolver, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	var captured string
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(captured))
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestOwnerResolver_HeaderMode(t *testing.T) {
	resolver := newOwnerResolver("", "famiglia")

	t.Run("header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("X-Owner-ID", "alice")
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if w.Body.String() != "alice" {
			t.Errorf("owner = %q, want alice", w.Body.String())
		}
	})

	t.Run("missing header falls back to default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		w := ownerEcho(t, resolver, req)
		if w.Body.String() != "famiglia" {
			t.Errorf("owner = %q, want famiglia", w.Body.String())
		}
	})

	t.Run("header is sanitized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("X-Owner-ID", "  bob\x00  ")
		w := ownerEcho(t, resolver, req)
		if w.Body.String() != "bob" {
			t.Errorf("owner = %q, want bob", w.Body.String())
		}
	})
}

func TestOwnerResolver_TokenMode(t *testing.T) {
	const secret = "test-secret"
	resolver := newOwnerResolver(secret, "famiglia")

	t.Run("valid token resolves subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, secret, "alice"))
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if w.Body.String() != "alice" {
			t.Errorf("owner = %q, want alice", w.Body.String())
		}
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if got := w.Header().Get("WWW-Authenticate"); got == "" {
			t.Error("WWW-Authenticate header not set")
		}
	})

	t.Run("wrong signature is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, "other-secret", "alice"))
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		signed, err := token.SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("token without subject is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, secret, ""))
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("owner header is ignored when auth is on", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("X-Owner-ID", "mallory")
		w := ownerEcho(t, resolver, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequiresOwner(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/records", true},
		{"/records/abc", true},
		{"/overview", true},
		{"/healthz", false},
		{"/readyz", false},
		{"/metrics", false},
		{"/static/style.css", false},
		{"/static/app.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := requiresOwner(tt.path); got != tt.want {
				t.Errorf("requiresOwner(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestOwnerResolver_ProbesBypassAuth(t *testing.T) {
	resolver := newOwnerResolver("test-secret", "famiglia")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := ownerEcho(t, resolver, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for unauthenticated probe", w.Code)
	}
}
