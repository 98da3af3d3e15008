package models

import "time"

// RefreshToken is one issued refresh credential. Only the digest of the
// opaque secret is stored. Rows are never deleted: revoked and expired rows
// stay around so a replayed secret is still recognised and rejected.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsActive reports whether the token may still be used at now.
// Expiry is computed here, never stored.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
