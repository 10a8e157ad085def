package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openmahalla/portalcore/internal/app"
	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/workflow"
)

// submissionPayload decorates a submission with the display label and action
// flags so the web client renders without its own rule tables.
type submissionPayload struct {
	domain.Submission
	StatusLabel string `json:"statusLabel"`
	CanEdit     bool   `json:"canEdit"`
	CanCancel   bool   `json:"canCancel"`
	CanConfirm  bool   `json:"canConfirm"`
}

func decorate(sub *domain.Submission) submissionPayload {
	return submissionPayload{
		Submission:  *sub,
		StatusLabel: domain.StatusLabels[sub.Kind][sub.Status],
		CanEdit:     workflow.CanEdit(sub),
		CanCancel:   workflow.CanCancel(sub),
		CanConfirm:  workflow.CanConfirm(sub),
	}
}

func kindParam(c echo.Context) (domain.Kind, error) {
	kind := domain.Kind(c.Param("kind"))
	if _, ok := workflow.RulesFor(kind); !ok {
		return "", apperrors.Validation(fmt.Sprintf("unknown submission kind %q", kind))
	}
	return kind, nil
}

type submissionRequest struct {
	CategoryRef string          `json:"category"`
	ServiceRef  string          `json:"service"`
	Description string          `json:"description"`
	Contact     domain.Contact  `json:"contact"`
	Address     *domain.Address `json:"address"`
}

func (r submissionRequest) toInput() app.SubmissionInput {
	return app.SubmissionInput{
		CategoryRef: r.CategoryRef,
		ServiceRef:  r.ServiceRef,
		Description: r.Description,
		Contact:     r.Contact,
		Address:     r.Address,
	}
}

func (s *Server) handleListSubmissions(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	list, err := s.app.ListSubmissions(c.Request().Context(), kind)
	if err != nil {
		return err
	}

	payload := make([]submissionPayload, 0, len(list))
	for i := range list {
		payload = append(payload, decorate(&list[i]))
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *Server) handleGetSubmission(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	sub, err := s.app.GetSubmission(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decorate(sub))
}

func (s *Server) handleCreateSubmission(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("malformed request body")
	}

	sub, err := s.app.CreateSubmission(c.Request().Context(), kind, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, decorate(sub))
}

func (s *Server) handleUpdateSubmission(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("malformed request body")
	}

	sub, err := s.app.UpdateSubmission(c.Request().Context(), kind, c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decorate(sub))
}

func (s *Server) handleCancelSubmission(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	var req struct {
		CancelReason string `json:"cancelReason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("malformed request body")
	}

	sub, err := s.app.CancelSubmission(c.Request().Context(), kind, c.Param("id"), req.CancelReason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decorate(sub))
}

func (s *Server) handleConfirmSubmission(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Confirmed *bool `json:"confirmed"`
	}
	if err := c.Bind(&req); err != nil || req.Confirmed == nil {
		return apperrors.Validation("confirmed must be true or false")
	}

	sub, err := s.app.ConfirmSubmission(c.Request().Context(), kind, c.Param("id"), *req.Confirmed)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decorate(sub))
}

func (s *Server) handleLatestReport(c echo.Context) error {
	sub, err := s.app.LatestReport(c.Request().Context(), c.QueryParam("service"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decorate(sub))
}

func (s *Server) handleReopenReport(c echo.Context) error {
	sub, err := s.app.ReopenReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, decorate(sub))
}
