package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(id,\s*user_id,\s*token_hash,\s*expires_at,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`
	findQ   = `(?s)^\s*SELECT\s+id,\s*user_id,\s*token_hash,\s*expires_at,\s*revoked_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	revokeQ = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+revoked_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL\s*$`
)

func sampleToken() *models.RefreshToken {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.RefreshToken{
		ID:        "t1",
		UserID:    "u1",
		TokenHash: "hash1",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tok := sampleToken()
	mock.ExpectExec(insertQ).
		WithArgs("t1", "u1", "hash1", tok.ExpiresAt, tok.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), sampleToken())
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleToken())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByHash_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := sampleToken()
	revoked := want.CreatedAt.Add(time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}).
		AddRow(want.ID, want.UserID, want.TokenHash, want.ExpiresAt, revoked, want.CreatedAt)

	mock.ExpectQuery(findQ).
		WithArgs("hash1").
		WillReturnRows(rows)

	got, err := repo.FindByHash(context.Background(), "hash1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "t1" || got.UserID != "u1" || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(revoked) {
		t.Fatalf("unexpected revoked_at: %v", got.RevokedAt)
	}
}

func TestFindByHash_NullRevokedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := sampleToken()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}).
		AddRow(want.ID, want.UserID, want.TokenHash, want.ExpiresAt, nil, want.CreatedAt)

	mock.ExpectQuery(findQ).
		WithArgs("hash1").
		WillReturnRows(rows)

	got, err := repo.FindByHash(context.Background(), "hash1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RevokedAt != nil {
		t.Fatalf("expected nil revoked_at, got %v", got.RevokedAt)
	}
}

func TestFindByHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByHash(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByHash_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).
		WithArgs("hash1").
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByHash(context.Background(), "hash1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMarkRevoked(t *testing.T) {
	at := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"revoked by this call", 1, true},
		{"already revoked", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(revokeQ).
				WithArgs("t1", at).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.MarkRevoked(context.Background(), "t1", at)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("MarkRevoked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkRevoked_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokeQ).
		WillReturnError(errors.New("db err"))

	_, err := repo.MarkRevoked(context.Background(), "t1", time.Now())
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
