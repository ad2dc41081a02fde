// Package api provides the REST API over the airline, airport and route store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"airroutes/internal/metrics"
	"airroutes/internal/query"
	"airroutes/internal/storage"
	"airroutes/internal/store"
)

// Config holds configuration for the API server.
type Config struct {
	APIKeys    []string // Auth is enabled when at least one key is set.
	RateLimit  float64  // Requests per second across all clients; 0 disables.
	RateBurst  int
	CORSOrigin string
	Timeout    time.Duration
}

// Server serves the store over HTTP.
type Server struct {
	store    *store.Store
	engine   *query.Engine
	cfg      Config
	apiKeys  map[string]bool
	limiter  *rate.Limiter
	validate *validator.Validate

	logger      *zap.Logger
	metrics     *metrics.Metrics
	searches    storage.SearchLogger
	searchStats storage.SearchStats
}

// Option configures optional collaborators of a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics the server reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSearchLog records every direct and one-hop search to l.
func WithSearchLog(l storage.SearchLogger) Option {
	return func(s *Server) { s.searches = l }
}

// WithSearchStats enables the top searches endpoint.
func WithSearchStats(st storage.SearchStats) Option {
	return func(s *Server) { s.searchStats = st }
}

// NewServer creates an API server. The store gauges are registered on the
// server's metrics, so each Metrics value may back only one server.
func NewServer(st *store.Store, engine *query.Engine, cfg Config, opts ...Option) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}

	s := &Server{
		store:    st,
		engine:   engine,
		cfg:      cfg,
		apiKeys:  keys,
		validate: validator.New(),
		logger:   zap.NewNop(),
		searches: storage.NopSearchLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.metrics.ObserveStore(st)

	return s
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Timeout))

	// CORS for browser access.
	r.Use(s.corsMiddleware)

	if s.limiter != nil {
		r.Use(s.rateLimitMiddleware)
	}

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Optional authentication.
		if len(s.apiKeys) > 0 {
			r.Use(s.authMiddleware)
		}

		r.Get("/health", s.handleHealth)

		r.Get("/airlines", s.handleAirlines)
		r.Get("/airlines/list", s.handleAirlinesPage)
		r.Post("/airline/insert", s.handleInsertAirline)
		r.Get("/airline/{iata}", s.handleAirline)
		r.Get("/airline/{iata}/routes", s.handleAirlineAirports)
		r.Post("/airline/{iata}/update", s.handleUpdateAirline)
		r.Delete("/airline/{iata}", s.handleDeleteAirline)

		r.Get("/airports", s.handleAirports)
		r.Get("/airports/list", s.handleAirportsPage)
		r.Get("/airports/search", s.handleSearchAirports)
		r.Get("/airports/top", s.handleTopAirports)
		r.Get("/airports/geographic", s.handleGeographic)
		r.Post("/airport/insert", s.handleInsertAirport)
		r.Get("/airport/{iata}", s.handleAirport)
		r.Get("/airport/{iata}/airlines", s.handleAirportAirlines)
		r.Post("/airport/{iata}/update", s.handleUpdateAirport)
		r.Delete("/airport/{iata}", s.handleDeleteAirport)

		r.Get("/direct/{source}/{dest}", s.handleDirect)
		r.Get("/onehop/{source}/{dest}", s.handleOneHop)

		r.Post("/route/insert", s.handleInsertRoute)
		r.Get("/route/{id}", s.handleRoute)
		r.Post("/route/{id}/update", s.handleUpdateRoute)
		r.Delete("/route/{id}", s.handleDeleteRoute)

		r.Get("/searches/top", s.handleTopSearches)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API listening", zap.String("addr", addr), zap.Bool("auth", len(s.apiKeys) > 0))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.logger.Info("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// instrument logs each request and records it by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.ObserveHTTP(route, r.Method, status, elapsed)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("remote", r.RemoteAddr))
	})
}

// corsMiddleware adds CORS headers for browser access.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				apiKey = key
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// code reads an IATA path parameter, normalised to upper case.
func code(r *http.Request, name string) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, name)))
}

// queryInt reads an integer query parameter, returning def when absent or invalid.
func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
