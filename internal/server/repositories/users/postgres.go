package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/dbx"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
)

const selectUser = `
		SELECT id, email, first_name, last_name, password_hash, auth_provider, google_sub, created_at
		FROM users
	`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user and fills CreatedAt from the database.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, auth_provider, google_sub)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, string(user.AuthProvider), user.GoogleSubjectID,
	).Scan(&user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+"WHERE email = $1", email)
}

func (r *PostgresRepository) GetBySubjectID(ctx context.Context, subject string) (*models.User, error) {
	return r.getOne(ctx, selectUser+"WHERE google_sub = $1", subject)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+"WHERE id = $1", id)
}

func (r *PostgresRepository) LinkSubject(ctx context.Context, userID, subject string) (bool, error) {
	query := `
		UPDATE users
		SET google_sub = $2, auth_provider = $3
		WHERE id = $1 AND (google_sub IS NULL OR google_sub = $2)
	`
	res, err := r.db.ExecContext(ctx, query, userID, subject, string(models.ProviderGoogle))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return false, common.ErrAlreadyExists
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var provider string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &provider, &user.GoogleSubjectID, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.AuthProvider = models.AuthProvider(provider)
	return user, nil
}
