package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/server/services"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type logoutResponse struct {
	Revoked bool `json:"revoked"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AuthProvider string    `json:"auth_provider"`
	HasPassword  bool      `json:"has_password"`
	CreatedAt    time.Time `json:"created_at"`
}

func newTokenPairResponse(p *services.TokenPair) tokenPairResponse {
	return tokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "bearer"}
}

func (s *HTTPServer) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	pair, err := s.auth.Register(c.Request().Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newTokenPairResponse(pair))
}

func (s *HTTPServer) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	pair, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newTokenPairResponse(pair))
}

func (s *HTTPServer) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	pair, err := s.auth.RotateRefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newTokenPairResponse(pair))
}

func (s *HTTPServer) logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	revoked, err := s.auth.RevokeRefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, logoutResponse{Revoked: revoked})
}

func (s *HTTPServer) me(c echo.Context) error {
	u := currentUser(c)
	if u == nil {
		return detail(c, http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, userResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		AuthProvider: string(u.AuthProvider),
		HasPassword:  u.HasPassword(),
		CreatedAt:    u.CreatedAt,
	})
}
