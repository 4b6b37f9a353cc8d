// Package middleware provides HTTP middleware for the import API:
// request logging, trusted-proxy IP resolution and API-key auth.
package middleware

import (
	"net/http"
	"time"

	"github.com/advocase/importer/internal/logging"
)

// Logger logs one structured line per request with the chi request ID
// attached via logging.FromContext. Import uploads run synchronously,
// so duration_ms on POST /api/imports is effectively the session
// duration; the slow requests in the log are the imports themselves.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		ip := r.RemoteAddr
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ip,
			"user_agent", r.UserAgent(),
		)
	})
}

// responseWriter captures the status code for the log line.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer for middleware that type-asserts
// optional interfaces like http.Flusher.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
