// Package httpserver is the gateway's HTTP surface. It translates the web
// client's requests into application-layer calls and decorates submission
// payloads with the action flags and status labels the views render from.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmahalla/portalcore/internal/app"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/platform/config"
)

type appService interface {
	ListRegions(ctx context.Context, nodeType domain.GeoNodeType, parentID string) ([]domain.GeoNode, error)
	GetProfile(ctx context.Context) (*domain.Profile, error)
	SaveAddress(ctx context.Context, addr domain.Address) (domain.Address, error)
	ListSubmissions(ctx context.Context, kind domain.Kind) ([]domain.Submission, error)
	GetSubmission(ctx context.Context, kind domain.Kind, id string) (*domain.Submission, error)
	CreateSubmission(ctx context.Context, kind domain.Kind, input app.SubmissionInput) (*domain.Submission, error)
	UpdateSubmission(ctx context.Context, kind domain.Kind, id string, input app.SubmissionInput) (*domain.Submission, error)
	CancelSubmission(ctx context.Context, kind domain.Kind, id string, reason string) (*domain.Submission, error)
	ConfirmSubmission(ctx context.Context, kind domain.Kind, id string, confirmed bool) (*domain.Submission, error)
	ReopenReport(ctx context.Context, id string) (*domain.Submission, error)
	LatestReport(ctx context.Context, serviceRef string) (*domain.Submission, error)
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       appService
	startTime time.Time
}

func NewServer(cfg *config.Config, app appService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       app,
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
