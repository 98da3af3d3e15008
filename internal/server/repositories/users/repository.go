// Package users declares the user persistence contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/divvyauth/internal/server/models"
)

// Repository stores user accounts. Emails are expected to be normalised by
// the caller. Absent rows yield common.ErrorNotFound and uniqueness
// conflicts (email, Google subject) yield common.ErrAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetBySubjectID(ctx context.Context, subject string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// LinkSubject attaches a Google subject to the user and switches the
	// provider to google, keeping any password digest. It reports false when
	// the user is already linked to a different subject.
	LinkSubject(ctx context.Context, userID, subject string) (bool, error)
}
