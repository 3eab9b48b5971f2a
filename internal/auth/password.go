package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

// CompromiseChecker reports whether a password appears in a
// known-compromised corpus. Compromised returns true when the password
// must be rejected.
type CompromiseChecker interface {
	Compromised(ctx context.Context, password string) (bool, error)
}

// CorpusChecker is the default CompromiseChecker backed by the built-in
// common-password corpus. It never errors.
type CorpusChecker struct{}

func (CorpusChecker) Compromised(_ context.Context, password string) (bool, error) {
	return validator.Apply(validator.NotCommonPassword("password", password)) != nil, nil
}

// PasswordService registers users and verifies credentials.
type PasswordService struct {
	storage    UserStorage
	bcryptCost int
	strength   validator.PasswordStrengthConfig
	checker    CompromiseChecker
	failOpen   bool
	logger     *slog.Logger
}

// PasswordOption configures a PasswordService during construction.
type PasswordOption func(*PasswordService)

// WithPasswordLogger sets a custom logger for the service.
func WithPasswordLogger(l *slog.Logger) PasswordOption {
	return func(s *PasswordService) {
		s.logger = l
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) {
		s.bcryptCost = cost
	}
}

// WithPasswordStrength sets custom password strength requirements.
func WithPasswordStrength(config validator.PasswordStrengthConfig) PasswordOption {
	return func(s *PasswordService) {
		s.strength = config
	}
}

// WithCompromiseChecker sets the compromised-password collaborator.
func WithCompromiseChecker(c CompromiseChecker) PasswordOption {
	return func(s *PasswordService) {
		s.checker = c
	}
}

// WithCompromiseFailOpen accepts passwords when the compromise checker is
// unavailable. The default is fail-closed: checker errors reject the
// password.
func WithCompromiseFailOpen() PasswordOption {
	return func(s *PasswordService) {
		s.failOpen = true
	}
}

// NewPasswordService creates a password authentication service.
func NewPasswordService(storage UserStorage, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		strength:   validator.DefaultPasswordStrength(),
		checker:    CorpusChecker{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// validatePassword applies the strength policy and the compromise check.
// Returns validator errors so the HTTP layer renders them as 422.
func (s *PasswordService) validatePassword(ctx context.Context, password string) error {
	if err := validator.Apply(
		validator.StrongPassword("password", password, s.strength),
	); err != nil {
		return err
	}

	compromised, err := s.checker.Compromised(ctx, password)
	if err != nil {
		if s.failOpen {
			s.logger.Warn("compromise check unavailable, accepting password",
				logger.Error(err),
				logger.Component("password"),
			)
			return nil
		}
		return fmt.Errorf("compromise check failed: %w", err)
	}
	if compromised {
		return validator.ValidationErrors{{
			Field:   "password",
			Message: "password has appeared in a data breach, choose another",
		}}
	}

	return nil
}

// Register creates a new user with a name, email, and password. Duplicate
// emails fail with ErrEmailAlreadyExists whether detected by the pre-check
// or by the storage unique constraint under concurrency.
func (s *PasswordService) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = sanitizer.TrimName(name)
	email = sanitizer.NormalizeEmail(email)

	if err := validator.Apply(
		validator.RequiredString("name", name),
		validator.MaxLenString("name", name, 255),
		validator.ValidEmail("email", email),
	); err != nil {
		return nil, err
	}
	if err := s.validatePassword(ctx, password); err != nil {
		return nil, err
	}

	if _, err := s.storage.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies an email and password pair. Any failure returns
// the generic ErrInvalidCredentials so callers cannot enumerate accounts.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// HashPassword hashes a plaintext password with the configured cost.
func (s *PasswordService) HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// PlaceholderHash returns a bcrypt hash of a random secret that is
// discarded immediately. OAuth-only accounts store it so the password
// column is never empty while no password can ever match it.
func (s *PasswordService) PlaceholderHash() ([]byte, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate placeholder: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(b)), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder: %w", err)
	}
	return hash, nil
}
