package server

import (
	"net/http"
	"strings"

	"github.com/sendrec/clipdeck/internal/httputil"
)

// Origins the clip player may frame.
const playerFrameSources = "'self' https://www.youtube.com https://www.youtube-nocookie.com"

const permissionsPolicy = `camera=(), microphone=(), geolocation=(), autoplay=(self "https://www.youtube.com"), fullscreen=(self "https://www.youtube.com")`

type SecurityConfig struct {
	BaseURL               string
	StorageEndpoint       string
	AllowedFrameAncestors string
}

// contentSecurityPolicy returns the policy with a {nonce} placeholder.
func (cfg SecurityConfig) contentSecurityPolicy() string {
	connect := "'self'"
	if cfg.StorageEndpoint != "" {
		connect += " " + cfg.StorageEndpoint
	}
	ancestors := "'self'"
	if extra := strings.TrimSpace(cfg.AllowedFrameAncestors); extra != "" {
		ancestors += " " + extra
	}

	directives := []string{
		"default-src 'self'",
		"img-src 'self' data: https://i.ytimg.com",
		"script-src 'self' 'nonce-{nonce}'",
		"style-src 'self' 'nonce-{nonce}'",
		"connect-src " + connect,
		"frame-src " + playerFrameSources,
		"frame-ancestors " + ancestors,
	}
	return strings.Join(directives, "; ") + ";"
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")
	policy := cfg.contentSecurityPolicy()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()

			h := w.Header()
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Permissions-Policy", permissionsPolicy)
			h.Set("Content-Security-Policy", strings.ReplaceAll(policy, "{nonce}", nonce))
			if strictTransport {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(httputil.ContextWithNonce(r.Context(), nonce)))
		})
	}
}
