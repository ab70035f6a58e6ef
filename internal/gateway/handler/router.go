package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bioauth/pkg/platform/middleware/metadata"
	"bioauth/pkg/platform/middleware/request"
	"bioauth/pkg/platform/middleware/requesttime"
)

// NewRouter wires the gateway middleware stack around h.
// timeout bounds time spent queued for the vendor lock. Once the lock is held the
// operation runs without the request deadline and each vendor call is bounded by
// the vendor client's own timeout.
// metricsHandler, when non-nil, is mounted at /metrics outside the timeout.
func NewRouter(h *Handler, logger *slog.Logger, timeout time.Duration, metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientDevice)
	r.Use(chimw.Recoverer)
	r.Use(accessLog(logger))

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Group(func(r chi.Router) {
		if timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}
		h.Register(r)
	})
	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", ww.Header().Get(request.HeaderRequestID),
			)
		})
	}
}
