package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/labstack/echo/v4"
)

const (
	stateCookieName = "divvy_oauth_state"
	stateCookiePath = "/auth/google"
	stateMaxAge     = 600
)

// googleLogin sends the browser to Google's consent page. A random state is
// kept in a short-lived cookie and checked again on the callback.
func (s *HTTPServer) googleLogin(c echo.Context) error {
	state, err := common.MakeRandURLSafeString(24)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, s.verifier.AuthCodeURL(state))
}

func (s *HTTPServer) googleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return detail(c, http.StatusBadRequest, "Missing authorization code")
	}

	cookie, err := c.Cookie(stateCookieName)
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return detail(c, http.StatusBadRequest, "Invalid OAuth state")
	}
	c.SetCookie(&http.Cookie{Name: stateCookieName, Path: stateCookiePath, MaxAge: -1, HttpOnly: true})

	ctx := c.Request().Context()
	claim, err := s.verifier.VerifyAuthCode(ctx, code)
	if err != nil {
		s.logger.Warn(ctx, "google verification failed", "error", err)
		return s.writeServiceError(c, err)
	}

	pair, err := s.auth.FederatedLogin(ctx, *claim)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newTokenPairResponse(pair))
}
