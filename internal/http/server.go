// Package http serves the corpus statistics and the analyze and schedule
// operations over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/telemetry"
)

// maxBodyBytes caps request bodies; transcripts are a few KB.
const maxBodyBytes = "1M"

// Events lists, looks up and cancels booked follow-ups.
// *scheduling.Service implements it.
type Events interface {
	List() []*scheduling.Event
	Get(key string) (*scheduling.Event, bool)
	Cancel(ctx context.Context, key string) error
}

// Server provides the medtriage HTTP API.
type Server struct {
	echo      *echo.Echo
	engine    *pipeline.Engine
	events    Events
	telemetry *telemetry.Telemetry
	logger    *logging.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// ConfigFrom converts the server section.
func ConfigFrom(cfg config.ServerConfig) *Config {
	return &Config{Host: cfg.Host, Port: cfg.Port, ShutdownTimeout: cfg.ShutdownTimeout}
}

// Option customizes a Server.
type Option func(*Server)

// WithEvents enables the follow-up list, lookup and cancel endpoints.
func WithEvents(ev Events) Option {
	return func(s *Server) { s.events = ev }
}

// WithTelemetry reports telemetry health on /health.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *Server) { s.telemetry = t }
}

// NewServer creates a new HTTP server.
func NewServer(engine *pipeline.Engine, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})

	s := &Server{
		echo:   e,
		engine: engine,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	st := v1.Group("/stats")
	st.GET("", s.handleSummary)
	st.GET("/symptoms", s.handleSymptoms)
	st.GET("/symptoms/:tag", s.handleSymptom)
	st.GET("/diseases", s.handleDiseases)
	st.GET("/diseases/:tag", s.handleDisease)
	st.GET("/cooccurrence", s.handleCooccurrence)
	st.GET("/cooccurrence/matrix", s.handleCooccurrenceMatrix)
	st.GET("/lengths", s.handleLengths)
	st.GET("/gender", s.handleGender)
	st.GET("/risk", s.handleRisk)

	v1.POST("/analyze", s.handleAnalyze)
	v1.POST("/conversations", s.handleIngest)
	v1.POST("/schedule", s.handleSchedule)
	v1.GET("/schedule", s.handleListEvents)
	v1.GET("/schedule/:id", s.handleGetEvent)
	v1.DELETE("/schedule/:id", s.handleCancelEvent)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
