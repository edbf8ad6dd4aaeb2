// Package http exposes the budget rollup over two JSON routes plus health
// probes.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetrollup/internal/log"
	"budgetrollup/internal/middleware/ratelimit"
	"budgetrollup/internal/middleware/security"
	"budgetrollup/internal/middleware/trace"
	"budgetrollup/internal/rollup"
)

// RollupComputer validates a raw project id and computes its rollup.
type RollupComputer interface {
	ComputeRollup(ctx context.Context, rawProjectID string) (*rollup.Rollup, error)
}

// Pinger reports whether the source store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	rollups RollupComputer
	store   Pinger
	logger  *log.Logger

	requestTimeout  time.Duration
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	started         time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, rollups RollupComputer, store Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		rollups:         rollups,
		store:           store,
		logger:          logger,
		requestTimeout:  opts.RequestTimeout,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		traceMiddleware: trace.NewMiddleware(logger, security.ClientIP),
		started:         time.Now(),
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	base := func(h http.Handler) http.Handler {
		h = log.ComponentMiddleware(log.ComponentHTTP)(h)
		h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
		h = log.Middleware(logger)(h)
		h = headers.Middleware(h)
		return s.traceMiddleware.Middleware(h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return base(s.rateLimiter.Middleware(security.ClientIP, s.handleRateLimited)(h))
	}

	details := limited(s.handleBudgetDetails)
	mux.Handle("GET /api/projects/{projectId}/budget/details", details)
	mux.Handle("GET /api/budget/{projectId}/details", details)

	mux.Handle("GET /healthz", base(http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /readyz", base(http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /openapi.yaml", base(http.HandlerFunc(handleOpenAPI)))

	return s
}

// Shutdown stops the rate limiter and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
