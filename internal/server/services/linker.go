package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/logging"
	"github.com/dmitrijs2005/divvyauth/internal/server/identity"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FederatedLinker maps a verified identity claim to a user account.
//
// Resolution order: an account already linked to the subject; otherwise the
// account with the claim's email, which gets linked (its password, if any,
// stays usable); otherwise a new password-less account. An email already
// linked to a different subject is refused: the first claim wins.
type FederatedLinker struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	newID       func() string
}

func NewFederatedLinker(m repomanager.RepositoryManager, logger logging.Logger) *FederatedLinker {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &FederatedLinker{repomanager: m, logger: logger, newID: uuid.NewString}
}

// Resolve returns the account for claim. A uniqueness conflict while linking
// or creating means a concurrent login got there first; resolution then runs
// once more and normally finds that account.
func (l *FederatedLinker) Resolve(ctx context.Context, claim identity.Claim) (*models.User, error) {
	email := common.NormalizeEmail(claim.Email)
	subject := strings.TrimSpace(claim.SubjectID)
	if email == "" || subject == "" {
		return nil, common.ErrInvalidIdentityClaim
	}

	user, err := l.resolve(ctx, email, subject, claim)
	if errors.Is(err, common.ErrAlreadyExists) {
		user, err = l.resolve(ctx, email, subject, claim)
	}
	if errors.Is(err, common.ErrAlreadyExists) {
		l.logger.Warn(ctx, "identity conflict persisted after retry", "subject", subject)
		return nil, common.ErrorInternal
	}
	return user, err
}

func (l *FederatedLinker) resolve(ctx context.Context, email, subject string, claim identity.Claim) (*models.User, error) {
	repo := l.repomanager.Users(l.repomanager.Conn())

	user, err := repo.GetBySubjectID(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		l.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	user, err = repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return l.link(ctx, user, subject)
	case !errors.Is(err, common.ErrorNotFound):
		l.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	first, last := deriveNames(claim)
	user = &models.User{
		ID:              l.newID(),
		Email:           email,
		FirstName:       first,
		LastName:        last,
		AuthProvider:    models.ProviderGoogle,
		GoogleSubjectID: &subject,
	}
	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		l.logger.Error(ctx, "user insert failed", "error", err)
		return nil, common.ErrorInternal
	}

	l.logger.Info(ctx, "federated user created", "user_id", user.ID)
	return user, nil
}

func (l *FederatedLinker) link(ctx context.Context, user *models.User, subject string) (*models.User, error) {
	if user.GoogleSubjectID != nil && *user.GoogleSubjectID != subject {
		return nil, common.ErrInvalidIdentityClaim
	}

	linked, err := l.repomanager.Users(l.repomanager.Conn()).LinkSubject(ctx, user.ID, subject)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		l.logger.Error(ctx, "user link failed", "error", err)
		return nil, common.ErrorInternal
	}
	if !linked {
		return nil, common.ErrInvalidIdentityClaim
	}

	user.GoogleSubjectID = &subject
	user.AuthProvider = models.ProviderGoogle
	l.logger.Info(ctx, "account linked to federated identity", "user_id", user.ID)
	return user, nil
}

// deriveNames prefers the explicit name parts. With neither present the full
// name is split on its first run of whitespace; the remainder may be empty.
func deriveNames(claim identity.Claim) (string, string) {
	if claim.GivenName != "" || claim.FamilyName != "" {
		return claim.GivenName, claim.FamilyName
	}

	full := strings.TrimSpace(claim.FullName)
	i := strings.IndexFunc(full, unicode.IsSpace)
	if i < 0 {
		return full, ""
	}
	return full[:i], strings.TrimLeftFunc(full[i:], unicode.IsSpace)
}
