package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// LogRequests logs method, path, status and latency of every request at
// debug level.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
