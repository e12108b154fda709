// Package http serves the MediChat REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/logging"
	"github.com/fyrsmithlabs/medichat/internal/notify"
	"github.com/fyrsmithlabs/medichat/internal/session"
)

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	MaxUploadBytes int64
}

// ModelInfo describes the configured pipeline for reports.
type ModelInfo struct {
	LLM          string
	Embeddings   string
	ChunkWindow  int
	ChunkOverlap int
}

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	sessions *session.Manager
	docs     *ingestion.Service
	notifier *notify.Dispatcher
	logger   *logging.Logger
	config   *Config
	info     ModelInfo
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// NewServer creates a server over sessions. docs and notifier may be nil,
// in which case the stored-document and email routes answer 503.
func NewServer(sessions *session.Manager, docs *ingestion.Service, notifier *notify.Dispatcher, logger *logging.Logger, cfg *Config, info ModelInfo) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8085}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.HTTPErrorHandler = errorHandler(e, logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(req.Context(), reqID)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())

	s := &Server{
		echo:     e,
		sessions: sessions,
		docs:     docs,
		notifier: notifier,
		logger:   logger,
		config:   cfg,
		info:     info,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sessions", s.handleCreateSession)
	v1.GET("/documents", s.handleListDocuments)
	v1.DELETE("/documents/:hash", s.handleRemoveDocument)

	sess := v1.Group("/sessions/:id", s.loadSession)
	sess.DELETE("", s.handleDeleteSession)
	sess.POST("/documents", s.handleUpload, s.limitBody)
	sess.POST("/documents/reload", s.handleReload)
	sess.POST("/ask", s.handleAsk)
	sess.GET("/history", s.handleHistory)
	sess.DELETE("/history", s.handleResetHistory)
	sess.GET("/stats", s.handleStats)
	sess.POST("/report", s.handleReport)
	sess.POST("/ticket", s.handleTicket)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
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
