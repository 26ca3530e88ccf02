package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// Fragments that rarely show up in legitimate traffic to this app.
var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// User-Agent substrings of well-known scanners.
var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb",
	"scanner", "masscan", "zgrab",
}

// DetectionMetrics is a snapshot of the detector counters.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags requests that look like scans or injection attempts.
// Detection only counts and logs; nothing is blocked here.
type Detector struct {
	trustedProxies []*net.IPNet

	suspiciousTotal int64
	invalidIPTotal  int64
}

// NewDetector builds a detector that trusts forwarded headers from
// loopback and private-range proxies only.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("bad trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// AddTrustedProxy extends the set of proxies whose forwarded headers
// are believed.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// DetectSuspiciousRequest reports whether the request matches any scan
// heuristic and counts it if so.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if !looksSuspicious(r) {
		return false
	}
	atomic.AddInt64(&d.suspiciousTotal, 1)
	return true
}

func looksSuspicious(r *http.Request) bool {
	if containsAny(strings.ToLower(r.URL.Path), suspiciousPatterns) {
		return true
	}
	if containsAny(strings.ToLower(r.URL.RawQuery), suspiciousPatterns) {
		return true
	}
	if containsAny(strings.ToLower(r.Header.Get("User-Agent")), suspiciousAgents) {
		return true
	}
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return true
	}
	// Overlong URLs are usually fuzzers probing for overflows.
	if len(r.URL.String()) > 2048 {
		return true
	}
	// More than 5 proxy hops in X-Forwarded-For smells like header games.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && r.Header.Get("X-Real-IP") != "" {
		if strings.Count(xff, ",") > 5 {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

// Middleware logs suspicious requests and lets them through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP resolves the caller address. Forwarded headers count
// only when the direct peer is a trusted proxy; anything that fails to
// parse falls back to the connection address.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}

	peer := net.ParseIP(direct)
	if peer == nil {
		atomic.AddInt64(&d.invalidIPTotal, 1)
		return direct
	}
	if !d.isTrustedProxy(peer) {
		return direct
	}

	// X-Forwarded-For lists the client first, then each hop.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
		atomic.AddInt64(&d.invalidIPTotal, 1)
	}

	// X-Real-IP is what nginx sets.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		atomic.AddInt64(&d.invalidIPTotal, 1)
	}

	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspiciousTotal),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIPTotal),
	}
}
