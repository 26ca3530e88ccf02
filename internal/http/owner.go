package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// WithOwner stores the resolved owner in the context.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerContextKey, owner)
}

// OwnerFromContext returns the owner resolved for this request, or "" when
// the owner middleware did not run.
func OwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerContextKey).(string); ok {
		return owner
	}
	return ""
}

// ownerResolver decides which owner a request acts for. With a secret
// configured every data route needs a valid HS256 bearer token whose subject
// is the owner. Without one the X-Owner-ID header is trusted and the
// configured default owner fills the gap, which suits single-household
// deployments behind a private network.
type ownerResolver struct {
	secret       []byte
	defaultOwner string
}

func newOwnerResolver(authSecret, defaultOwner string) *ownerResolver {
	resolver := &ownerResolver{defaultOwner: defaultOwner}
	if authSecret != "" {
		resolver.secret = []byte(authSecret)
	}
	return resolver
}

// Middleware resolves the owner and stores it in the request context.
// Operational routes (probes, metrics, static assets) pass through untouched
// so monitoring keeps working when auth is on.
func (o *ownerResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requiresOwner(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		owner, err := o.resolve(r)
		if err != nil {
			slog.WarnContext(r.Context(), "Owner resolution failed",
				"error", err, "path", r.URL.Path, "method", r.Method)
			w.Header().Set("WWW-Authenticate", `Bearer realm="bilancio"`)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`<div class="error">Accesso non autorizzato</div>`))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

func requiresOwner(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return !strings.HasPrefix(path, "/static/")
}

func (o *ownerResolver) resolve(r *http.Request) (string, error) {
	if o.secret != nil {
		raw := bearerToken(r)
		if raw == "" {
			return "", errors.New("missing bearer token")
		}
		return o.parseToken(raw)
	}

	if v := sanitizeInput(r.Header.Get("X-Owner-ID")); v != "" {
		return v, nil
	}
	return o.defaultOwner, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func (o *ownerResolver) parseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return o.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
