package logging

import (
	"net/http"
	"time"
)

// RunHeader carries the run id of the resolution a response was built from
const RunHeader = "X-Gyp-Run"

// Middleware logs each HTTP request together with the run id of the
// resolution it was served from. currentRun may return "" before the
// first run.
func Middleware(currentRun func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if runID := currentRun(); runID != "" {
				ctx = WithRunID(ctx, runID)
				w.Header().Set(RunHeader, runID)
			}
			r = r.WithContext(ctx)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"durationMs", time.Since(start).Milliseconds(),
			}
			if wrapped.statusCode >= 400 {
				WarnContext(ctx, "request failed", args...)
			} else {
				DebugContext(ctx, "request completed", args...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
