package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserStorage is a mock implementation of UserStorage.
type MockUserStorage struct {
	mock.Mock
}

func (m *MockUserStorage) CreateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserStorage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserStorage) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserStorage) SetProviderID(ctx context.Context, id uuid.UUID, provider, externalID string) error {
	args := m.Called(ctx, id, provider, externalID)
	return args.Error(0)
}

// MockResetNotifier is a mock implementation of ResetNotifier.
type MockResetNotifier struct {
	mock.Mock
}

func (m *MockResetNotifier) SendPasswordReset(ctx context.Context, email, name, token string) error {
	args := m.Called(ctx, email, name, token)
	return args.Error(0)
}

// MockVerificationNotifier is a mock implementation of VerificationNotifier.
type MockVerificationNotifier struct {
	mock.Mock
}

func (m *MockVerificationNotifier) SendEmailVerification(ctx context.Context, email, name, link string) error {
	args := m.Called(ctx, email, name, link)
	return args.Error(0)
}

// MockCompromiseChecker is a mock implementation of CompromiseChecker.
type MockCompromiseChecker struct {
	mock.Mock
}

func (m *MockCompromiseChecker) Compromised(ctx context.Context, password string) (bool, error) {
	args := m.Called(ctx, password)
	return args.Bool(0), args.Error(1)
}

// fakeAdapter is a canned-profile provider adapter for reconciler tests.
type fakeAdapter struct {
	provider string
	profile  *ProviderProfile
	err      error
}

func (a *fakeAdapter) Provider() string { return a.provider }

func (a *fakeAdapter) AuthURL(state string) string {
	return "https://provider.test/auth?state=" + state
}

func (a *fakeAdapter) ResolveProfile(context.Context, string) (*ProviderProfile, error) {
	if a.err != nil {
		return nil, a.err
	}
	p := *a.profile
	return &p, nil
}

// fakeTokenStore is an in-memory TokenStorage for flow tests where issued
// tokens must be resolvable afterwards.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*Token
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[uuid.UUID]*Token)}
}

func (s *fakeTokenStore) CreateToken(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := *token
	s.tokens[t.ID] = &t
	return nil
}

func (s *fakeTokenStore) GetTokenByID(_ context.Context, id uuid.UUID) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	t := *token
	return &t, nil
}

func (s *fakeTokenStore) DeleteToken(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[id]; !ok {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

func (s *fakeTokenStore) DeleteUserTokens(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *fakeTokenStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
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

func (s *fakeTokenStore) count(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, token := range s.tokens {
		if token.UserID == userID {
			n++
		}
	}
	return n
}

// fakeUserStore is an in-memory UserStorage for flow tests.
type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return ErrEmailAlreadyExists
	}
	u := *user
	s.byID[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

func (s *fakeUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = append([]byte(nil), hash...)
	return nil
}

func (s *fakeUserStore) MarkEmailVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if user.EmailVerifiedAt == nil {
		user.EmailVerifiedAt = &at
	}
	return nil
}

func (s *fakeUserStore) SetProviderID(_ context.Context, id uuid.UUID, provider, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	switch provider {
	case ProviderGoogle:
		user.GoogleID = externalID
	case ProviderFacebook:
		user.FacebookID = externalID
	}
	return nil
}

// fakeResetStore is an in-memory ResetStorage for flow tests.
type fakeResetStore struct {
	mu       sync.Mutex
	requests map[string]*ResetRequest
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{requests: make(map[string]*ResetRequest)}
}

func (s *fakeResetStore) UpsertResetRequest(_ context.Context, req *ResetRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *req
	s.requests[r.Email] = &r
	return nil
}

func (s *fakeResetStore) GetResetRequest(_ context.Context, email string) (*ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[email]
	if !ok {
		return nil, ErrResetNotAllowed
	}
	r := *req
	return &r, nil
}

func (s *fakeResetStore) DeleteResetRequest(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, email)
	return nil
}

func (s *fakeResetStore) DeleteExpiredResetRequests(_ context.Context, before time.Time) (int64, error) {
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
