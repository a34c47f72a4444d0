// Package server exposes the dashboard over HTTP: a JSON API to drive it, the rendered page,
// and a websocket pushing every redraw.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/chart"
	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/gin-gonic/gin"
)

const readHeaderTimeout = 30 * time.Second

// Server serves a [dashboard.Controller].
type Server struct {
	options

	cfg     *config.Config
	dash    *dashboard.Controller
	builder *chart.Builder
	hub     *hub
	router  *gin.Engine
	l       *slog.Logger
}

// New builds a [Server] for a dashboard, and subscribes it to the redraws of the dashboard.
func New(cfg *config.Config, dash *dashboard.Controller, opts ...Option) *Server {
	o := optionsWithDefaults(append([]Option{WithAddress(cfg.Server.Address)}, opts...))
	l := slog.Default().With(slog.String("module", "server"))

	s := &Server{
		options: o,
		cfg:     cfg,
		dash:    dash,
		builder: chart.New(cfg),
		hub:     newHub(o.sendBuffer, l),
		l:       l,
	}

	s.router = s.routes()
	dash.AddSink(s.hub)

	return s
}

// Handler of all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Address the server listens to.
func (s *Server) Address() string {
	return s.address
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.l.Info("starting server", slog.String("address", s.address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving on %s: %w", s.address, err)
		}

		return nil

	case <-ctx.Done():
	}

	s.l.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by the http server
	s.hub.closeAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  s.dash.IsReady(),
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/", s.getPage)

	api := router.Group("/api")
	{
		api.GET("/origins", s.getOrigins)
		api.GET("/origins/:origin/destinations", s.getDestinations)
		api.GET("/view", s.getView)
		api.PUT("/route", s.putRoute)
		api.PUT("/origin", s.putOrigin)
		api.PUT("/mode", s.putMode)

		filters := api.Group("/filters")
		{
			filters.PUT("/:dimension", s.putFilter)
			filters.DELETE("/:dimension", s.deleteFilter)
			filters.DELETE("", s.deleteFilters)
		}

		api.GET("/ws", s.subscribe)
	}

	return router
}

// requestLogger logs every request but health checks.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/health") {
			c.Next()

			return
		}

		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}

		if c.Writer.Status() >= http.StatusBadRequest {
			s.l.Warn("request failed", attrs...)

			return
		}

		s.l.Info("request", attrs...)
	}
}
