// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/medvani/medvani/ai/metrics"
	"github.com/medvani/medvani/ai/orchestrator"
	"github.com/medvani/medvani/ai/speech"
	"github.com/medvani/medvani/internal/profile"
	"github.com/medvani/medvani/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer   *echo.Echo
	orchestrator *orchestrator.Orchestrator
	speechClient *speech.Client
	metrics      *metrics.Exporter
}

// NewServer builds the echo server and registers the API routes.
func NewServer(_ context.Context, profile *profile.Profile, store *store.Store, orch *orchestrator.Orchestrator, speechClient *speech.Client, exporter *metrics.Exporter) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s := &Server{
		Profile:      profile,
		Store:        store,
		echoServer:   e,
		orchestrator: orch,
		speechClient: speechClient,
		metrics:      exporter,
	}
	s.registerRoutes(e)
	return s, nil
}

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", s.health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	e.POST("/chat", s.chat)
	e.POST("/upload-media", s.uploadMedia)
	e.POST("/stt-tts", s.speechGateway)

	e.POST("/session/new", s.createSession)
	e.GET("/sessions", s.listSessions)
	e.GET("/sessions/:id", s.getSession)
	e.DELETE("/sessions/:id", s.deleteSession)
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("server started", "address", address, "version", s.Profile.Version)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server shutdown")
}

// health reports which backends the instance was configured with. Capability
// is decided once at startup from the profile, never probed per request.
func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.Profile.Version,
		"capabilities": map[string]bool{
			"llm":    s.Profile.IsLLMEnabled(),
			"speech": s.Profile.IsSpeechEnabled(),
			"vector": s.Profile.IsVectorEnabled(),
		},
	})
}
