package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/divvyauth/internal/server/config"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = config.MemoryDSN
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(memoryConfig())
	require.NoError(t, err)

	assert.IsType(t, &repomanager.InMemoryRepositoryManager{}, app.repomanager)
	assert.NotNil(t, app.authService)
	assert.Nil(t, app.verifier)
	assert.Nil(t, app.db)
}

func TestNewApp_GoogleEnabled(t *testing.T) {
	c := memoryConfig()
	c.GoogleClientID = "id"
	c.GoogleClientSecret = "secret"
	c.GoogleRedirectURI = "http://localhost/cb"

	app, err := NewApp(c)
	require.NoError(t, err)
	assert.NotNil(t, app.verifier)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.SecretKey = ""
	_, err := NewApp(c)
	assert.Error(t, err)

	c = memoryConfig()
	c.SigningAlgorithm = "XS999"
	_, err = NewApp(c)
	assert.Error(t, err)
}

func TestNewApp_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	orig := openDB
	openDB = func(dsn string) (*sql.DB, error) { return db, nil }
	defer func() { openDB = orig }()

	c := memoryConfig()
	c.DatabaseDSN = "postgres://example"

	app, err := NewApp(c)
	require.NoError(t, err)
	assert.IsType(t, &repomanager.PostgresRepositoryManager{}, app.repomanager)
	assert.Same(t, db, app.db)

	mock.ExpectClose()
	app.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_PostgresPingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	for i := 0; i < dbPingAttempts; i++ {
		mock.ExpectPing().WillReturnError(errors.New("refused"))
	}
	mock.ExpectClose()

	origBackoff := dbPingBackoff
	dbPingBackoff = time.Millisecond
	defer func() { dbPingBackoff = origBackoff }()

	orig := openDB
	openDB = func(dsn string) (*sql.DB, error) { return db, nil }
	defer func() { openDB = orig }()

	c := memoryConfig()
	c.DatabaseDSN = "postgres://example"

	_, err = NewApp(c)
	assert.ErrorContains(t, err, "refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingDB_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()

	origBackoff := dbPingBackoff
	dbPingBackoff = time.Millisecond
	defer func() { dbPingBackoff = origBackoff }()

	require.NoError(t, pingDB(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(memoryConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
