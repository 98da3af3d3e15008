// Package session keeps the CLI's current token pair in a local SQLite file
// so that refresh, logout and me can run as separate invocations.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/divvyauth/internal/client/migrations"
	"github.com/dmitrijs2005/divvyauth/internal/dbx"
	"github.com/dmitrijs2005/divvyauth/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// ErrNoSession is returned when no token pair has been saved yet.
var ErrNoSession = errors.New("not logged in")

type Store struct {
	db *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the session database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if _, err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored pair atomically.
func (s *Store) Save(ctx context.Context, accessToken, refreshToken string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := set(ctx, tx, keyAccessToken, accessToken); err != nil {
			return err
		}
		return set(ctx, tx, keyRefreshToken, refreshToken)
	})
}

// Tokens returns the stored pair, or ErrNoSession if there is none.
func (s *Store) Tokens(ctx context.Context) (accessToken, refreshToken string, err error) {
	accessToken, err = get(ctx, s.db, keyAccessToken)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = get(ctx, s.db, keyRefreshToken)
	if err != nil {
		return "", "", err
	}
	if refreshToken == "" {
		return "", "", ErrNoSession
	}
	return accessToken, refreshToken, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func get(ctx context.Context, db dbx.DBTX, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session[%s]: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, db dbx.DBTX, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write session[%s]: %w", key, err)
	}
	return nil
}
