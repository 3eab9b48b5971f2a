package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
)

// ResetNotifier dispatches the reset token to the account owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// ResetService implements the forgot/reset password flow. Reset tokens are
// single-use and email-bound: only the SHA-256 hash is stored, one live
// request per email, valid for a configured window.
type ResetService struct {
	storage   ResetStorage
	users     UserStorage
	passwords *PasswordService
	tokens    *TokenService
	notifier  ResetNotifier
	window    time.Duration
	logger    *slog.Logger
}

// ResetOption configures a ResetService during construction.
type ResetOption func(*ResetService)

// WithResetLogger sets a custom logger for the service.
func WithResetLogger(l *slog.Logger) ResetOption {
	return func(s *ResetService) {
		s.logger = l
	}
}

// WithResetWindow sets how long a reset request stays valid.
func WithResetWindow(window time.Duration) ResetOption {
	return func(s *ResetService) {
		s.window = window
	}
}

// NewResetService creates the password reset service.
func NewResetService(storage ResetStorage, users UserStorage, passwords *PasswordService, tokens *TokenService, notifier ResetNotifier, opts ...ResetOption) *ResetService {
	s := &ResetService{
		storage:   storage,
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		notifier:  notifier,
		window:    60 * time.Minute,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ForgotPassword creates a reset request for the email and dispatches the
// plaintext token through the notifier. Unknown emails return
// ErrUserNotFound. The request replaces any prior one for the same email.
// A dispatch failure is logged but does not fail the operation.
func (s *ResetService) ForgotPassword(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)
	hash := sha256.Sum256([]byte(plaintext))

	if err := s.storage.UpsertResetRequest(ctx, &ResetRequest{
		Email:     email,
		TokenHash: hash[:],
		CreatedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to store reset request: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, email, user.Name, plaintext); err != nil {
		s.logger.Error("failed to dispatch reset notification",
			slog.String("email", email),
			logger.Error(err),
			logger.Component("reset"),
		)
	}

	return nil
}

// ResetPassword consumes a reset token and swaps the password hash.
// Mismatched and expired tokens fail identically with ErrResetNotAllowed
// so the response does not reveal which check failed. Success deletes the
// request and revokes every bearer token the user holds.
func (s *ResetService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = sanitizer.NormalizeEmail(email)

	if err := s.passwords.validatePassword(ctx, newPassword); err != nil {
		return err
	}

	req, err := s.storage.GetResetRequest(ctx, email)
	if err != nil {
		return ErrResetNotAllowed
	}

	hash := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(hash[:], req.TokenHash) != 1 {
		return ErrResetNotAllowed
	}
	if time.Since(req.CreatedAt) > s.window {
		return ErrResetNotAllowed
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return ErrResetNotAllowed
	}

	newHash, err := s.passwords.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.storage.DeleteResetRequest(ctx, email); err != nil {
		return fmt.Errorf("failed to consume reset request: %w", err)
	}

	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}

	return nil
}

// Window returns the configured reset validity window.
func (s *ResetService) Window() time.Duration {
	return s.window
}
