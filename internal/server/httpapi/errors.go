package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Detail: msg})
}

// writeServiceError maps service errors onto status codes. Authentication
// failures get fixed messages; only identity provider failures carry detail.
func (s *HTTPServer) writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		return detail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, common.ErrInvalidCredentials):
		return detail(c, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return detail(c, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, common.ErrInvalidToken):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, common.BearerScheme)
		return detail(c, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, common.ErrInvalidIdentityClaim):
		return detail(c, http.StatusBadRequest, "Invalid Google profile")
	case errors.Is(err, common.ErrVerificationFailed):
		return detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorValidation):
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		return detail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// handleError renders errors echo itself produces (unknown route, bad
// method, malformed body) in the same shape as ours.
func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else {
		s.logger.Error(c.Request().Context(), "unhandled error", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = detail(c, status, msg)
}
