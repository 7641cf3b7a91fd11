package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/pkg/config"
)

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	rateLimiters       *sync.Map
	rateLimit          config.RateLimitConfig
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig) *Server {
	// Create Gin engine with recovery middleware only
	engine := gin.New()
	engine.Use(gin.Recovery())

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	maxHeader := cfg.MaxHeaderBytes
	if maxHeader <= 0 {
		maxHeader = 1 << 20 // 1 MB
	}

	return &Server{
		engine:       engine,
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		dependencies: &types.Dependencies{},
		httpServer: &http.Server{
			Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler: engine,
			// no write timeout: websocket connections stay open
			ReadTimeout:    readTimeout,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: maxHeader,
		},
	}
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// SetRateLimit configures per-client rate limiting for /api/v1
func (s *Server) SetRateLimit(cfg config.RateLimitConfig) {
	s.rateLimit = cfg
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	if s.dependencies == nil || s.dependencies.Coordinator == nil {
		return fmt.Errorf("server requires a coordinator")
	}

	// Setup global middleware
	s.setupMiddleware()

	// Setup routes
	return RegisterRoutes(s.engine, s.dependencies, s.limiter())
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	if gin.Mode() == gin.DebugMode {
		s.engine.Use(gin.Logger())
	} else {
		s.engine.Use(RequestLogger(s.dependencies.Logger))
	}

	// Global CORS
	s.engine.Use(CORS())

	// Global request size limit
	s.engine.Use(RequestSizeLimit())
}

// limiter returns the rate limit middleware, or nil when disabled
func (s *Server) limiter() gin.HandlerFunc {
	if !s.rateLimit.Enabled || s.rateLimit.RPS <= 0 {
		return nil
	}
	burst := s.rateLimit.Burst
	if burst <= 0 {
		burst = s.rateLimit.RPS
	}
	return PerClientRateLimit(s.rateLimiters, s.cleanupStop, &s.cleanupInitialized, s.rateLimit.RPS, burst)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	s.stopOnce.Do(func() { close(s.cleanupStop) })

	return s.httpServer.Shutdown(ctx)
}
