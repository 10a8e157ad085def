package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmahalla/portalcore/internal/apperrors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(requestIDMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware())
	s.echo.Use(newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst))

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/regions", s.handleListRegions)
	api.GET("/users/me", s.handleGetProfile)
	api.PUT("/users/region", s.handleSaveAddress)

	subs := api.Group("/submissions/:kind")
	subs.GET("/my", s.handleListSubmissions)
	subs.GET("/my/:id", s.handleGetSubmission)
	subs.POST("", s.handleCreateSubmission)
	subs.PUT("/:id", s.handleUpdateSubmission)
	subs.PUT("/:id/cancel", s.handleCancelSubmission)
	subs.PUT("/:id/confirm", s.handleConfirmSubmission)

	api.GET("/service-reports/latest", s.handleLatestReport)
	api.POST("/service-reports/:id/reopen", s.handleReopenReport)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
