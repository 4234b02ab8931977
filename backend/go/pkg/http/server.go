package http

import (
	"AgentDeck/backend/go/internal/config"
	"AgentDeck/backend/go/pkg/circuitbreaker"
	"AgentDeck/backend/go/pkg/httpmiddleware"
	"AgentDeck/backend/go/pkg/logger"
	"AgentDeck/backend/go/pkg/ratelimiter"
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server wraps a gin engine and an http.Server with the middleware chain
// selected by configuration.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// NewServer creates a Server for cfg. Recovery, request logging and CORS are
// always on; rate limiting and circuit breaking follow cfg.Middleware.
func NewServer(cfg *config.AppConfig, log *logger.Logger, opts ...ServerOption) (*Server, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpmiddleware.RequestLogger(log))
	engine.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := createRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		log.WithPayload(map[string]interface{}{"algorithm": cfg.Middleware.RateLimiter.Algorithm}).Info("Enabling rate limiter middleware")
		engine.Use(httpmiddleware.RateLimit(limiter))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := createCircuitBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		log.Info("Enabling circuit breaker middleware")
		engine.Use(httpmiddleware.CircuitBreak(breaker))
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		logger: log,
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":5000"
	}
	return srv, nil
}

// Engine exposes the gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server on " + s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RegisterOnShutdown registers fn to run when Shutdown is called, used to close
// hijacked WebSocket connections that Shutdown does not track.
func (s *Server) RegisterOnShutdown(fn func()) {
	s.httpServer.RegisterOnShutdown(fn)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	c.AllowWebSockets = true
	return c
}

// createRateLimiter initializes a rate limiter based on the configuration.
func createRateLimiter(cfg config.RateLimiterConfig) (ratelimiter.RateLimiter, error) {
	var window time.Duration
	if cfg.Algorithm == "fixedWindow" {
		d, err := time.ParseDuration(cfg.FixedWindow.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		window = d
	}
	return ratelimiter.New(cfg.Algorithm, cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity, cfg.FixedWindow.Limit, window)
}

// createCircuitBreaker initializes a circuit breaker based on the configuration.
func createCircuitBreaker(cfg config.CircuitBreakerConfig) (*circuitbreaker.Breaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout), nil
}
