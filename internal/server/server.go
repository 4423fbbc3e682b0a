// Package server exposes the prayer-time calculator over HTTP. Responses use
// the Al Adhan envelope so clients written for that API work unchanged.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salat/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

// Server bundles router and dependencies for the REST API.
type Server struct {
	addr   string
	sched  *schedule.Scheduler
	clock  func() time.Time
	log    zerolog.Logger
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) { s.clock = clock }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New constructs a server with routes and middleware. The scheduler supplies
// the default location and settings and caches their days.
func New(addr string, sched *schedule.Scheduler, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		addr:   addr,
		sched:  sched,
		clock:  time.Now,
		log:    zerolog.Nop(),
		engine: engine,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.log))
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until ctx is done or the listener
// fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info().Str("addr", s.addr).Msg("HTTP API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	v1.GET("/timings", s.handleTimings)
	v1.GET("/next", s.handleNext)
	v1.GET("/methods", s.handleMethods)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
