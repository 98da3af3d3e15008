// Package refreshtokens declares the server-side repository contract for
// refresh token digests and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/server/models"
)

// Repository stores refresh token records. Records are never deleted.
type Repository interface {
	// Create stores a new record. A digest collision yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByHash returns the record with the given digest, revoked or not.
	// Implementations return common.ErrorNotFound when absent. Inside a
	// transaction the row stays locked until it ends.
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)

	// MarkRevoked sets revoked_at on a record that is not revoked yet and
	// reports whether this call did it.
	MarkRevoked(ctx context.Context, id string, at time.Time) (bool, error)
}
