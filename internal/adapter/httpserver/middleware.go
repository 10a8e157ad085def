package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/openmahalla/portalcore/internal/platform/requestid"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware adopts the caller's request id or assigns a fresh one,
// carries it through context for logging and upstream propagation, and
// echoes it back on the response.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(requestIDHeader)
		if id == "" {
			id = requestid.New()
		}
		ctx := requestid.With(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(requestIDHeader, id)
		return next(c)
	}
}
