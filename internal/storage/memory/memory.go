// Package memory implements the auth storage interfaces with in-process
// maps guarded by mutexes. It backs tests and the local dev mode; the
// semantics mirror the postgres package, including the email-uniqueness
// constraint on create.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/internal/auth"
)

// UserStore implements auth.UserStorage in memory.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*auth.User
	byEmail map[string]uuid.UUID
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[uuid.UUID]*auth.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return auth.ErrEmailAlreadyExists
	}

	u := *user
	s.byID[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) GetUserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.PasswordHash = append([]byte(nil), hash...)
	return nil
}

func (s *UserStore) MarkEmailVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	if user.EmailVerifiedAt == nil {
		user.EmailVerifiedAt = &at
	}
	return nil
}

func (s *UserStore) SetProviderID(_ context.Context, id uuid.UUID, provider, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}

	switch provider {
	case auth.ProviderGoogle:
		user.GoogleID = externalID
	case auth.ProviderFacebook:
		user.FacebookID = externalID
	default:
		return auth.ErrUnknownProvider
	}
	return nil
}

// TokenStore implements auth.TokenStorage in memory.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]*auth.Token
}

// NewTokenStore creates an empty in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[uuid.UUID]*auth.Token)}
}

func (s *TokenStore) CreateToken(_ context.Context, token *auth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	s.tokens[t.ID] = &t
	return nil
}

func (s *TokenStore) GetTokenByID(_ context.Context, id uuid.UUID) (*auth.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[id]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	t := *token
	return &t, nil
}

func (s *TokenStore) DeleteToken(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[id]; !ok {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

func (s *TokenStore) DeleteUserTokens(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *TokenStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountUserTokens returns the number of live tokens for a user. Test
// helper, not part of auth.TokenStorage.
func (s *TokenStore) CountUserTokens(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, token := range s.tokens {
		if token.UserID == userID {
			count++
		}
	}
	return count
}

// ResetStore implements auth.ResetStorage in memory.
type ResetStore struct {
	mu       sync.RWMutex
	requests map[string]*auth.ResetRequest
}

// NewResetStore creates an empty in-memory reset request store.
func NewResetStore() *ResetStore {
	return &ResetStore{requests: make(map[string]*auth.ResetRequest)}
}

func (s *ResetStore) UpsertResetRequest(_ context.Context, req *auth.ResetRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *req
	s.requests[r.Email] = &r
	return nil
}

func (s *ResetStore) GetResetRequest(_ context.Context, email string) (*auth.ResetRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[email]
	if !ok {
		return nil, auth.ErrResetNotAllowed
	}
	r := *req
	return &r, nil
}

func (s *ResetStore) DeleteResetRequest(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.requests, email)
	return nil
}

func (s *ResetStore) DeleteExpiredResetRequests(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for email, req := range s.requests {
		if req.CreatedAt.Before(before) {
			delete(s.requests, email)
			deleted++
		}
	}
	return deleted, nil
}
