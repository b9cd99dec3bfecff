package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/energizer-project/craftlure/internal/config"
	intnet "github.com/energizer-project/craftlure/internal/network"
	"github.com/energizer-project/craftlure/internal/telemetry"
	"github.com/energizer-project/craftlure/internal/util"
)

// Server is the read-only admin API.
type Server struct {
	cfg        config.APIConfig
	listenAddr string
	metrics    *telemetry.Metrics
	logger     zerolog.Logger

	mu        sync.Mutex
	listener  net.Listener
	ready     chan struct{}
	readyOnce sync.Once
}

// NewServer creates a new API server. listenAddr is the decoy listener
// address reported by the info endpoint.
func NewServer(cfg config.APIConfig, listenAddr string, metrics *telemetry.Metrics, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:        cfg,
		listenAddr: listenAddr,
		metrics:    metrics,
		logger:     util.ComponentLogger("api"),
		ready:      make(chan struct{}),
	}
}

// Start binds the API address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	router := s.buildRouter()

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Create listener with SO_REUSEADDR for immediate rebinding after restart
	lc := intnet.ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	// Start may run again after Serve fails.
	s.readyOnce.Do(func() { close(s.ready) })

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("admin API starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// Addr waits for the server to bind and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr(), nil
}

// Handler returns the router without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/stats", s.handleStats)
		public.GET("/info", s.handleInfo)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return router
}
