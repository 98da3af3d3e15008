package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength bounds the accepted password size in bytes.
const MaxPasswordLength = 4096

var ErrPasswordTooLong = errors.New("password too long")

// PasswordHasher hashes passwords with bcrypt.
//
// The password is first reduced with SHA-256 (base64 encoded, 44 bytes), so
// input beyond bcrypt's 72-byte window still counts. bcrypt adds a random
// salt per call, so hashing the same password twice gives different digests.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher returns a hasher using the given bcrypt cost. Values
// outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &PasswordHasher{cost: cost}
	h.dummy, _ = bcrypt.GenerateFromPassword(prehash("divvy-dummy-password"), cost)
	return h
}

// Hash returns the bcrypt digest of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword(prehash(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A malformed digest is a
// mismatch, not an error.
func (h *PasswordHasher) Verify(password, digest string) bool {
	if len(password) > MaxPasswordLength || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(password)) == nil
}

// VerifyDummy performs one comparison against a fixed digest and discards
// the result. Login calls it when the account has no digest so that path
// takes as long as a real mismatch.
func (h *PasswordHasher) VerifyDummy(password string) {
	if h.dummy == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, prehash(password))
}

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(encoded, sum[:])
	return encoded
}
