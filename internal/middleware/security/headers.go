package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds the security header values stamped on every response.
// An empty string disables the corresponding header.
type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
}

// DefaultHeadersConfig returns the production defaults. The CSP allows htmx
// from unpkg and inline styles, which the templates rely on.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: "default-src 'self'; " +
			"script-src 'self' https://unpkg.com; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"font-src 'self'; " +
			"object-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'",
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		HSTSPreload:           false,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
	}
}

// HeadersMiddleware writes a fixed header set on each response. The set is
// assembled once at construction; only HSTS depends on the request, since it
// is meaningless off TLS.
type HeadersMiddleware struct {
	pairs [][2]string
	hsts  string
}

// NewHeadersMiddleware bakes config into a reusable middleware.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	m := &HeadersMiddleware{}
	add := func(name, value string) {
		if value != "" {
			m.pairs = append(m.pairs, [2]string{name, value})
		}
	}
	add("Content-Security-Policy", config.CSP)
	add("X-Frame-Options", config.XFrameOptions)
	add("X-Content-Type-Options", config.XContentTypeOptions)
	add("Referrer-Policy", config.ReferrerPolicy)
	add("Permissions-Policy", config.PermissionsPolicy)
	add("Cross-Origin-Opener-Policy", config.CrossOriginOpener)
	add("Cross-Origin-Resource-Policy", config.CrossOriginResource)

	if config.HSTSMaxAge > 0 {
		m.hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			m.hsts += "; includeSubDomains"
		}
		if config.HSTSPreload {
			m.hsts += "; preload"
		}
	}
	return m
}

// Middleware wraps next so every response carries the configured headers.
func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, p := range m.pairs {
			h.Set(p[0], p[1])
		}
		if m.hsts != "" && r.TLS != nil {
			h.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware marks responses as immutable for maxAge seconds.
// Meant for the fingerprint-free /static tree, where a bounded cache window
// is the best we can do.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d, immutable", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
