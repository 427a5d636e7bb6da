// Package api exposes the newsletter platform over HTTP/JSON.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ironlady/newsletter-platform/internal/config"
	"github.com/ironlady/newsletter-platform/internal/content"
	"github.com/ironlady/newsletter-platform/internal/pkg/logger"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
	"github.com/ironlady/newsletter-platform/internal/service/subscriber"
	"github.com/ironlady/newsletter-platform/internal/service/template"
)

// Server is the HTTP API server.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	server   *http.Server
}

// NewServer creates the API server around the service layer.
func NewServer(
	cfg config.ServerConfig,
	subscribers *subscriber.Service,
	templates *template.Service,
	campaigns *campaign.Service,
	generator *content.Generator,
) *Server {
	handlers := NewHandlers(subscribers, templates, campaigns, generator)
	return &Server{cfg: cfg, handlers: handlers}
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      SetupRoutes(s.handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	logger.Info("api server listening", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
