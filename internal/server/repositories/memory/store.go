// Package memory implements the repository contracts in process memory.
// It backs the "memory" DSN and the service tests. State is lost when the
// process exits.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/server/models"
)

// Store holds users and refresh tokens behind a single mutex. Values are
// copied in and out so callers never share memory with the store.
type Store struct {
	mu     sync.Mutex
	users  map[string]models.User
	tokens map[string]models.RefreshToken
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]models.User),
		tokens: make(map[string]models.RefreshToken),
	}
}

// Users returns a users.Repository view of the store.
func (s *Store) Users() *UsersRepository {
	return &UsersRepository{s: s}
}

// RefreshTokens returns a refreshtokens.Repository view of the store.
func (s *Store) RefreshTokens() *RefreshTokensRepository {
	return &RefreshTokensRepository{s: s}
}

type UsersRepository struct {
	s *Store
}

func (r *UsersRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return common.ErrAlreadyExists
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return common.ErrAlreadyExists
		}
		if user.GoogleSubjectID != nil && u.GoogleSubjectID != nil && *u.GoogleSubjectID == *user.GoogleSubjectID {
			return common.ErrAlreadyExists
		}
	}

	user.CreatedAt = time.Now().UTC()
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *UsersRepository) GetBySubjectID(ctx context.Context, subject string) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.GoogleSubjectID != nil && *u.GoogleSubjectID == subject
	})
}

func (r *UsersRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := copyUser(&u)
	return &c, nil
}

func (r *UsersRepository) LinkSubject(ctx context.Context, userID, subject string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return false, nil
	}
	if u.GoogleSubjectID != nil && *u.GoogleSubjectID != subject {
		return false, nil
	}
	for id, other := range r.s.users {
		if id != userID && other.GoogleSubjectID != nil && *other.GoogleSubjectID == subject {
			return false, common.ErrAlreadyExists
		}
	}

	u.GoogleSubjectID = &subject
	u.AuthProvider = models.ProviderGoogle
	r.s.users[userID] = u
	return true, nil
}

func (r *UsersRepository) find(match func(u *models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(&u) {
			c := copyUser(&u)
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

type RefreshTokensRepository struct {
	s *Store
}

func (r *RefreshTokensRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[token.UserID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := r.s.tokens[token.ID]; ok {
		return common.ErrAlreadyExists
	}
	for _, t := range r.s.tokens {
		if t.TokenHash == token.TokenHash {
			return common.ErrAlreadyExists
		}
	}

	r.s.tokens[token.ID] = copyToken(token)
	return nil
}

func (r *RefreshTokensRepository) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tokens {
		if t.TokenHash == hash {
			c := copyToken(&t)
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *RefreshTokensRepository) MarkRevoked(ctx context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	t.RevokedAt = &at
	r.s.tokens[id] = t
	return true, nil
}

func copyUser(u *models.User) models.User {
	c := *u
	if u.PasswordHash != nil {
		v := *u.PasswordHash
		c.PasswordHash = &v
	}
	if u.GoogleSubjectID != nil {
		v := *u.GoogleSubjectID
		c.GoogleSubjectID = &v
	}
	return c
}

func copyToken(t *models.RefreshToken) models.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		v := *t.RevokedAt
		c.RevokedAt = &v
	}
	return c
}
