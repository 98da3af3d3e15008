package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
	"github.com/labstack/echo/v4"
)

const currentUserKey = "current_user"

// requireAccessToken resolves the bearer access token to a user and stores
// it on the context for the handler.
func (s *HTTPServer) requireAccessToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request())
		if !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, common.BearerScheme)
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}

		user, err := s.auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			return s.writeServiceError(c, err)
		}

		c.Set(currentUserKey, user)
		return next(c)
	}
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(currentUserKey).(*models.User)
	return u
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
