package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"newsletter-agent/logger"
	"newsletter-agent/model"
)

// Generator turns a list of links into a newsletter.
type Generator interface {
	Generate(ctx context.Context, links []string) model.Newsletter
}

// GenerateRequest is the body of POST /generate-newsletter.
type GenerateRequest struct {
	Links []string `json:"links"`
}

// GenerateResponse is the reply of POST /generate-newsletter.
type GenerateResponse struct {
	Newsletter string `json:"newsletter"`
}

// Server exposes newsletter generation over HTTP.
type Server struct {
	echo *echo.Echo
	gen  Generator
	log  *zap.Logger
}

// New creates a Server with its routes registered.
func New(gen Generator, log *zap.Logger) *Server {
	s := &Server{
		echo: echo.New(),
		gen:  gen,
		log:  logger.OrNop(log),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.log.Info("request", fields...)
			return nil
		},
	}))

	s.echo.POST("/generate-newsletter", s.generate)
	s.echo.GET("/healthz", s.healthz)
	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	start := time.Now()
	nl := s.gen.Generate(c.Request().Context(), req.Links)
	s.log.Info("newsletter generated",
		zap.Int("links", len(req.Links)),
		zap.Int("summaries", len(nl.Links)),
		zap.Duration("elapsed", time.Since(start)))

	return c.JSON(http.StatusOK, GenerateResponse{Newsletter: nl.FullNewsletter})
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
