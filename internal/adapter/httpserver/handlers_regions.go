package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
)

func (s *Server) handleListRegions(c echo.Context) error {
	nodeType := domain.GeoNodeType(c.QueryParam("type"))
	if nodeType == "" {
		nodeType = domain.GeoRegion
	}

	nodes, err := s.app.ListRegions(c.Request().Context(), nodeType, c.QueryParam("parent"))
	if err != nil {
		return err
	}
	if nodes == nil {
		nodes = []domain.GeoNode{}
	}
	return c.JSON(http.StatusOK, nodes)
}

func (s *Server) handleGetProfile(c echo.Context) error {
	profile, err := s.app.GetProfile(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleSaveAddress(c echo.Context) error {
	var addr domain.Address
	if err := c.Bind(&addr); err != nil {
		return apperrors.Validation("malformed request body")
	}

	saved, err := s.app.SaveAddress(c.Request().Context(), addr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}
