// Package server initializes and runs the auth server: storage, migrations,
// the auth service, the HTTP API and graceful shutdown on signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/logging"
	"github.com/dmitrijs2005/divvyauth/internal/server/config"
	"github.com/dmitrijs2005/divvyauth/internal/server/httpapi"
	"github.com/dmitrijs2005/divvyauth/internal/server/identity"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divvyauth/internal/server/services"
	"github.com/sethvargo/go-retry"
)

const (
	dbPingTimeout  = 5 * time.Second
	dbPingAttempts = 5
)

// dbPingBackoff is the pause between ping attempts; tests shorten it.
var dbPingBackoff = time.Second

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authService *services.AuthService
	verifier    identity.Verifier
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app := &App{config: c, logger: logger}

	if c.DatabaseDSN == config.MemoryDSN {
		logger.Warn(context.Background(), "using in-memory storage, data will not survive a restart")
		app.repomanager = repomanager.NewInMemoryRepositoryManager()
	} else {
		db, err := openDB(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := pingDB(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		rm, err := repomanager.NewPostgresRepositoryManager(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		app.repomanager = rm
	}

	as, err := services.NewAuthService(app.repomanager, c, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.authService = as

	if c.GoogleEnabled() {
		app.verifier = identity.NewGoogleVerifier(c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURI)
	} else {
		logger.Info(context.Background(), "google sign-in disabled, client not configured")
	}

	return app, nil
}

// pingDB waits for the database to accept connections, which it may not do
// yet when both are started together.
func pingDB(ctx context.Context, db *sql.DB) error {
	b := retry.WithMaxRetries(dbPingAttempts-1, retry.NewConstant(dbPingBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Close releases the database handle, if any.
func (app *App) Close() {
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.authService, app.verifier)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run migrates the schema and serves until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repomanager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return nil
}
