// Package httpapi exposes the auth service over JSON/HTTP using echo.
// Errors are returned as {"detail": "..."}.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/logging"
	"github.com/dmitrijs2005/divvyauth/internal/server/identity"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
	"github.com/dmitrijs2005/divvyauth/internal/server/services"
	"github.com/labstack/echo/v4"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server was told to stop.
const shutdownTimeout = 10 * time.Second

// AuthService is what the handlers need from services.AuthService.
type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RotateRefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) (bool, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	FederatedLogin(ctx context.Context, claim identity.Claim) (*services.TokenPair, error)
}

type HTTPServer struct {
	address  string
	auth     AuthService
	verifier identity.Verifier
	logger   logging.Logger
	echo     *echo.Echo
}

// NewHTTPServer wires routes. verifier may be nil, in which case the Google
// routes are not registered.
func NewHTTPServer(address string, l logging.Logger, auth AuthService, verifier identity.Verifier) *HTTPServer {
	s := &HTTPServer{
		address:  address,
		auth:     auth,
		verifier: verifier,
		logger:   l.With("module", "http_server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	s.echo = e

	s.routes()
	return s
}

func (s *HTTPServer) routes() {
	s.echo.GET("/health", s.health)

	g := s.echo.Group("/auth")
	g.POST("/register", s.register)
	g.POST("/login", s.login)
	g.POST("/refresh", s.refresh)
	g.POST("/logout", s.logout)
	g.GET("/me", s.me, s.requireAccessToken)

	if s.verifier != nil {
		g.GET("/google/login", s.googleLogin)
		g.GET("/google/callback", s.googleCallback)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(context.Background(), "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
