package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sendrec/clipdeck/internal/session"
)

// Paths polled by load balancers and the docs viewer; logging them is noise.
var quietPaths = map[string]bool{
	"/api/health":            true,
	"/api/docs/openapi.yaml": true,
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// sessionTag is enough of the session id to correlate log lines without
// making the log a source of live cookies.
func sessionTag(r *http.Request) string {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if len(cookie.Value) > 8 {
		return cookie.Value[:8]
	}
	return cookie.Value
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"bytes", recorder.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				attrs = append(attrs, "route", rctx.RoutePattern())
			}
			if tag := sessionTag(r); tag != "" {
				attrs = append(attrs, "session", tag)
			}

			level := slog.LevelInfo
			switch {
			case recorder.statusCode >= 500:
				level = slog.LevelError
			case recorder.statusCode >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}
