package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/galkin"
	"github.com/star/galkin/internal/auth"
	"github.com/star/galkin/internal/config"
	"github.com/star/galkin/internal/health"
	"github.com/star/galkin/internal/metrics"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the transform endpoints, probes, and middleware chain.
func NewServer(cfg config.Config, frame *galkin.Frame, pool *galkin.Pool, logger *slog.Logger) *Server {
	t := &transformAPI{
		logger:   logger,
		frame:    frame,
		pool:     pool,
		maxStars: cfg.Limits.MaxStars,
		maxBody:  cfg.Limits.MaxBodyBytes,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return true }))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/galactic", t.handleGalactic)
	mux.HandleFunc("POST /api/v1/xyz", t.handleXYZ)
	mux.HandleFunc("POST /api/v1/uvw", t.handleUVW)

	limiter := newIPLimiter(cfg.Limits.RatePerSecond, cfg.Limits.Burst, cfg.Limits.TrustProxy)

	// Build middleware chain: metrics -> logging -> auth -> rate limit -> mux.
	var handler http.Handler = mux
	handler = limiter.middleware(handler)
	handler = auth.Middleware(auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token})(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.Server.ReadTimeout(),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout(),
			IdleTimeout:       cfg.Server.IdleTimeout(),
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
