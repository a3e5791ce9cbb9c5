// Package middleware holds the HTTP middleware chain: request logging,
// CORS, and rate limiting.  Identification middleware (request id, real ip)
// comes from chi.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
)

// wrappedResponseWriter captures the status code and bytes written for the
// access log.
type wrappedResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *wrappedResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *wrappedResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// RequestLogger logs one structured line per request.
func RequestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &wrappedResponseWriter{ResponseWriter: w}

			next.ServeHTTP(ww, r)

			status := ww.status
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", ww.bytes),
				logging.Duration("duration", time.Since(start)),
				logging.String("remote", r.RemoteAddr),
				logging.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
