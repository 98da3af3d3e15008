package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/divvyauth/internal/common"
)

// opaqueSecretBytes is the entropy of a refresh secret (384 bits).
const opaqueSecretBytes = 48

// NewOpaqueSecret returns a fresh refresh token: random bytes from
// crypto/rand, base64url encoded, with no structure a client could parse.
func NewOpaqueSecret() (string, error) {
	return common.MakeRandURLSafeString(opaqueSecretBytes)
}

// Digest is the storage key for a refresh secret: hex SHA-256, unsalted and
// deterministic so the secret can be found by exact match. Slow password
// hashing is unnecessary here because the input is already high-entropy.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
