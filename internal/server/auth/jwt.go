package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenType is the "type" claim every access token carries.
const AccessTokenType = "access"

// AccessClaims is the claim set of an access token: subject (user id),
// issued-at, expiry and a type discriminator.
type AccessClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// TokenCodec signs and verifies access tokens with a server-held HMAC key
// and one fixed algorithm.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec validates the configuration and builds a codec. algorithm
// must be one of HS256, HS384 or HS512.
func NewTokenCodec(secret []byte, algorithm string, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("empty signing key")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case jwt.SigningMethodHS256.Alg():
		method = jwt.SigningMethodHS256
	case jwt.SigningMethodHS384.Alg():
		method = jwt.SigningMethodHS384
	case jwt.SigningMethodHS512.Alg():
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return &TokenCodec{secret: secret, method: method, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime given to new access tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// SignAccess mints an access token for subject expiring TTL from now.
func (c *TokenCodec) SignAccess(subject string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(c.method, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Type: AccessTokenType,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies signature, algorithm, expiry and token type in one step.
// Any failure yields common.ErrInvalidToken and nothing else, so callers
// cannot learn which check tripped.
func (c *TokenCodec) Decode(tokenString string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	claims := &AccessClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Type != AccessTokenType || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
