package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/divvyauth/internal/client/api"
	"github.com/dmitrijs2005/divvyauth/internal/client/config"
	"github.com/dmitrijs2005/divvyauth/internal/client/session"
)

var ErrUsage = errors.New("usage: client [-a url] [-t seconds] [-s session.db] register|login|refresh|logout|me")

// AuthClient is the part of api.HTTPClient the commands use.
type AuthClient interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.TokenPair, error)
	Login(ctx context.Context, email, password string) (*api.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) (bool, error)
	Me(ctx context.Context, accessToken string) (*api.User, error)
}

type SessionStore interface {
	Save(ctx context.Context, accessToken, refreshToken string) error
	Tokens(ctx context.Context) (accessToken, refreshToken string, err error)
	Clear(ctx context.Context) error
}

type App struct {
	client  AuthClient
	session SessionStore
	reader  *bufio.Reader
	out     io.Writer
	close   func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, err := session.Open(ctx, c.SessionDSN)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	return &App{
		client:  api.NewHTTPClient(c.ServerEndpointAddr, c.RequestTimeout),
		session: store,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		close:   store.Close,
	}, nil
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}

	switch args[0] {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "logout":
		return a.Logout(ctx)
	case "me":
		return a.Me(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}
