// Package auth enforces bearer-token authentication on the track API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/star/trackgen/internal/httputil"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// Public reports whether path is served without a token: the web form and
// its assets, probes, metrics, and the key listing the form is built from.
func Public(path string) bool {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/api/v1/config":
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// bearer extracts the credential of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests to non-public paths that do not carry
// cfg.Token. It is a no-op when auth is disabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	want := []byte(cfg.Token)
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Public(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="trackgen"`)
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
