package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/api/sseauth"
	"github.com/graaaaa/suiticket-companion/internal/appinfo"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// corsMiddleware returns a middleware that handles CORS headers.
// Only origins in the allowlist are permitted.
func corsMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is in allowlist
			allowed := false
			for _, o := range cfg.AllowedOrigins {
				if o == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				if allowed {
					w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
					w.WriteHeader(http.StatusNoContent)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// csrfMiddleware rejects state-changing requests (POST, PUT, DELETE)
// whose Origin, or Referer when Origin is absent, is not an allowed host.
// A request with neither is rejected.
func csrfMiddleware(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			source, header := r.Header.Get("Origin"), "origin"
			if source == "" {
				source, header = r.Header.Get("Referer"), "referer"
			}
			if source == "" {
				writeError(w, http.StatusForbidden, "missing origin or referer", nil)
				return
			}
			u, err := url.Parse(source)
			if err != nil || !isAllowedHost(u.Host, allowedHosts) {
				writeError(w, http.StatusForbidden, "invalid "+header, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// stripPort returns host without its port. Bracketed IPv6 literals are
// unwrapped.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

// isAllowedHost reports whether host, with or without a port, is loopback
// or in the allowlist.
func isAllowedHost(host string, allowedHosts []string) bool {
	h := stripPort(host)
	if h == "localhost" {
		return true
	}
	if ip := net.ParseIP(h); ip != nil && ip.IsLoopback() {
		return true
	}
	for _, allowed := range allowedHosts {
		if strings.EqualFold(h, stripPort(allowed)) {
			return true
		}
	}
	return false
}

// securityHeadersMiddleware adds security headers to all responses.
// These headers protect against common web vulnerabilities.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// The API serves JSON only.
		csp := strings.Join([]string{
			"default-src 'none'",
			"base-uri 'none'",
			"frame-ancestors 'none'",
			"form-action 'none'",
		}, "; ")
		w.Header().Set("Content-Security-Policy", csp)

		// Restrict browser features
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Prevent cross-origin attacks
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}

// constantTimeEqualString compares two strings in constant time.
// Uses SHA-256 hashing to ensure comparison time is independent of input lengths.
func constantTimeEqualString(a, b string) bool {
	ah := sha256.Sum256([]byte(a))
	bh := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ah[:], bh[:]) == 1
}

var authRealm = `Basic realm="` + appinfo.AppName + `", charset="UTF-8"`

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", authRealm)
	writeError(w, http.StatusUnauthorized, "authentication required", nil)
}

func lockedOut(w http.ResponseWriter, afl *AuthFailureLimiter, ip string) {
	w.Header().Set("Retry-After", strconv.Itoa(afl.LockoutSecondsRemaining(ip)))
	writeError(w, http.StatusTooManyRequests, "too many failed login attempts", nil)
}

// checkBasicAuth reports whether r carries the expected credentials.
func checkBasicAuth(r *http.Request, username, password string) (present, ok bool) {
	u, p, present := r.BasicAuth()
	if !present {
		return false, false
	}
	// Evaluate both so timing does not reveal which one differed.
	usernameMatch := constantTimeEqualString(u, username)
	passwordMatch := constantTimeEqualString(p, password)
	return true, usernameMatch && passwordMatch
}

// basicAuthMiddleware returns a middleware that checks HTTP Basic Auth credentials.
// When afl is non-nil, wrong credentials count towards a per-IP lockout.
func basicAuthMiddleware(username, password string, afl *AuthFailureLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r)
			if afl != nil && afl.IsLocked(ip) {
				lockedOut(w, afl, ip)
				return
			}

			present, ok := checkBasicAuth(r, username, password)
			if !present {
				unauthorized(w)
				return
			}
			if !ok {
				if afl != nil && afl.RecordFailure(ip) < 0 {
					lockedOut(w, afl, ip)
					return
				}
				unauthorized(w)
				return
			}

			if afl != nil {
				afl.RecordSuccess(ip)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sseTokenMiddleware returns a middleware that accepts either Basic Auth or SSE token.
// EventSource cannot set headers, so the token comes as ?token=xxx.
func sseTokenMiddleware(username, password string, sseSecret []byte, afl *AuthFailureLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r)
			if afl != nil && afl.IsLocked(ip) {
				lockedOut(w, afl, ip)
				return
			}

			if present, ok := checkBasicAuth(r, username, password); ok {
				next.ServeHTTP(w, r)
				return
			} else if present && afl != nil {
				afl.RecordFailure(ip)
			}

			if token := r.URL.Query().Get("token"); token != "" && len(sseSecret) > 0 {
				if _, err := sseauth.ValidateToken(token, sseSecret, sseauth.ScopeSSE, time.Now()); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			unauthorized(w)
		})
	}
}
