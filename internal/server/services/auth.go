// Package services contains server-side business logic. AuthService handles
// registration, password login, access token checks and the refresh token
// lifecycle; FederatedLinker maps verified external identities to accounts.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/dbx"
	"github.com/dmitrijs2005/divvyauth/internal/logging"
	"github.com/dmitrijs2005/divvyauth/internal/server/auth"
	"github.com/dmitrijs2005/divvyauth/internal/server/config"
	"github.com/dmitrijs2005/divvyauth/internal/server/identity"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// The refresh token is handed out here once; only its digest is kept.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService holds no mutable state of its own; everything durable goes
// through the repository manager, so one instance serves all requests.
type AuthService struct {
	repomanager                  repomanager.RepositoryManager
	hasher                       *auth.PasswordHasher
	codec                        *auth.TokenCodec
	linker                       *FederatedLinker
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger

	now   func() time.Time
	newID func() string
}

// NewAuthService builds the service and its credential primitives from cfg.
func NewAuthService(m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) (*AuthService, error) {
	codec, err := auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.SigningAlgorithm, cfg.AccessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	if cfg.RefreshTokenValidityDuration <= 0 {
		return nil, errors.New("refresh token validity must be positive")
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With("module", "auth")

	return &AuthService{
		repomanager:                  m,
		hasher:                       auth.NewPasswordHasher(cfg.BcryptCost),
		codec:                        codec,
		linker:                       NewFederatedLinker(m, logger),
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger,
		now:                          time.Now,
		newID:                        uuid.NewString,
	}, nil
}

// Register creates a local account and signs it in. An existing email,
// whether seen up front or raced in by a concurrent registration, yields
// common.ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*TokenPair, error) {
	email = common.NormalizeEmail(email)
	if !common.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	if len(password) > auth.MaxPasswordLength {
		return nil, fmt.Errorf("%w: password too long", common.ErrorValidation)
	}

	_, err := s.repomanager.Users(s.repomanager.Conn()).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrEmailTaken
	case !errors.Is(err, common.ErrorNotFound):
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           s.newID(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: &digest,
		AuthProvider: models.ProviderLocal,
	}

	var pair *TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return common.ErrEmailTaken
			}
			s.logger.Error(ctx, "user insert failed", "error", err)
			return common.ErrorInternal
		}
		var err error
		pair, err = s.issueTokenPair(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return pair, nil
}

// Login checks an email and password. Unknown email, federated-only account
// and wrong password all return common.ErrInvalidCredentials, and all three
// spend one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = common.NormalizeEmail(email)

	user, err := s.repomanager.Users(s.repomanager.Conn()).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !user.HasPassword() {
		s.hasher.VerifyDummy(password)
		return nil, common.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, *user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.IssueTokenPair(ctx, user)
}

// IssueTokenPair mints an access token and a fresh refresh token for user.
func (s *AuthService) IssueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	return s.issueTokenPair(ctx, s.repomanager.Conn(), user.ID)
}

// RotateRefreshToken trades a live refresh token for a new pair. Lookup,
// revocation of the old record and insertion of the new one share one
// transaction, so either both happen or neither does. Of two concurrent
// rotations of the same secret exactly one succeeds.
func (s *AuthService) RotateRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidRefreshToken
	}
	hash := auth.Digest(refreshToken)

	var pair *TokenPair
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		record, err := repo.FindByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			s.logger.Error(ctx, "refresh token lookup failed", "error", err)
			return common.ErrorInternal
		}

		now := s.now()
		if !record.IsActive(now) {
			return common.ErrInvalidRefreshToken
		}

		revoked, err := repo.MarkRevoked(ctx, record.ID, now)
		if err != nil {
			s.logger.Error(ctx, "refresh token revoke failed", "error", err)
			return common.ErrorInternal
		}
		if !revoked {
			return common.ErrInvalidRefreshToken
		}

		pair, err = s.issueTokenPair(ctx, tx, record.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RevokeRefreshToken is logout. It reports true only when this call found a
// live token and revoked it; unknown, already revoked and expired tokens
// give false and are left as they are.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}
	hash := auth.Digest(refreshToken)

	var revoked bool
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		record, err := repo.FindByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			s.logger.Error(ctx, "refresh token lookup failed", "error", err)
			return common.ErrorInternal
		}

		now := s.now()
		if !record.IsActive(now) {
			return nil
		}

		revoked, err = repo.MarkRevoked(ctx, record.ID, now)
		if err != nil {
			s.logger.Error(ctx, "refresh token revoke failed", "error", err)
			return common.ErrorInternal
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// Authenticate resolves a bearer access token to its user. Any problem with
// the token, including a subject that no longer exists, is
// common.ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.repomanager.Conn()).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

// FederatedLogin resolves a verified external identity to an account,
// linking or creating it as needed, and signs it in.
func (s *AuthService) FederatedLogin(ctx context.Context, claim identity.Claim) (*TokenPair, error) {
	user, err := s.linker.Resolve(ctx, claim)
	if err != nil {
		return nil, err
	}
	return s.IssueTokenPair(ctx, user)
}

func (s *AuthService) issueTokenPair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	access, err := s.codec.SignAccess(userID)
	if err != nil {
		s.logger.Error(ctx, "access token signing failed", "error", err)
		return nil, common.ErrorInternal
	}

	secret, err := auth.NewOpaqueSecret()
	if err != nil {
		s.logger.Error(ctx, "refresh secret generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now()
	record := &models.RefreshToken{
		ID:        s.newID(),
		UserID:    userID,
		TokenHash: auth.Digest(secret),
		ExpiresAt: now.Add(s.refreshTokenValidityDuration),
		CreatedAt: now,
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, record); err != nil {
		s.logger.Error(ctx, "refresh token insert failed", "error", err)
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: secret}, nil
}
