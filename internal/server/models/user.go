package models

import "time"

// AuthProvider names the way a user last proved identity ownership.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// User is an account row. PasswordHash is nil for federated-only accounts;
// GoogleSubjectID is set once the account is linked to a Google identity.
type User struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	PasswordHash    *string
	AuthProvider    AuthProvider
	GoogleSubjectID *string
	CreatedAt       time.Time
}

// HasPassword reports whether the local password login path is available.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
