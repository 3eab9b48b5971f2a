package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/token"
)

// VerificationNotifier dispatches the signed verification link to the user.
type VerificationNotifier interface {
	SendEmailVerification(ctx context.Context, email, name, link string) error
}

// verifyPayload is the signed content of a verification link. The URL
// carries id, email hash, and expiry in the clear; the signature binds
// them together.
type verifyPayload struct {
	ID      string `json:"id"`
	Hash    string `json:"hash"`
	Expires int64  `json:"exp"`
}

// VerificationService issues and validates signed email verification
// links of the form /email/verify/{id}/{hash}?expires=...&signature=...
// where hash is the hex SHA-256 of the user's email address.
type VerificationService struct {
	users    UserStorage
	notifier VerificationNotifier
	secret   string
	baseURL  string
	ttl      time.Duration
	logger   *slog.Logger
}

// VerificationOption configures a VerificationService during construction.
type VerificationOption func(*VerificationService)

// WithVerificationLogger sets a custom logger for the service.
func WithVerificationLogger(l *slog.Logger) VerificationOption {
	return func(s *VerificationService) {
		s.logger = l
	}
}

// WithVerificationTTL sets how long a verification link stays valid.
func WithVerificationTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) {
		s.ttl = ttl
	}
}

// NewVerificationService creates the email verification service. baseURL
// is the external URL the service is reachable at, without trailing slash.
func NewVerificationService(users UserStorage, notifier VerificationNotifier, secret, baseURL string, opts ...VerificationOption) *VerificationService {
	s := &VerificationService{
		users:    users,
		notifier: notifier,
		secret:   secret,
		baseURL:  baseURL,
		ttl:      60 * time.Minute,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// VerificationURL builds a signed verification link for the user.
func (s *VerificationService) VerificationURL(user *User) (string, error) {
	emailHash := sha256.Sum256([]byte(user.Email))
	hash := hex.EncodeToString(emailHash[:])
	expires := time.Now().Add(s.ttl).Unix()

	signature, err := token.Generate(verifyPayload{
		ID:      user.ID.String(),
		Hash:    hash,
		Expires: expires,
	}, s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification link: %w", err)
	}

	return fmt.Sprintf("%s/email/verify/%s/%s?expires=%d&signature=%s",
		s.baseURL, user.ID.String(), hash, expires, url.QueryEscape(signature)), nil
}

// SendVerification dispatches a fresh verification link. Users that are
// already verified get ErrAlreadyVerified instead of another email.
func (s *VerificationService) SendVerification(ctx context.Context, user *User) error {
	if user.Verified() {
		return ErrAlreadyVerified
	}

	link, err := s.VerificationURL(user)
	if err != nil {
		return err
	}

	if err := s.notifier.SendEmailVerification(ctx, user.Email, user.Name, link); err != nil {
		return fmt.Errorf("failed to dispatch verification email: %w", err)
	}

	return nil
}

// Verify validates the signed link against the authenticated user and
// marks the email verified. Every failure mode reports ErrInvalidSignature
// so the response does not reveal which part of the link was wrong.
// Verifying an already-verified user succeeds without side effects.
func (s *VerificationService) Verify(ctx context.Context, user *User, pathID, pathHash, expires, signature string) error {
	payload, err := token.Parse[verifyPayload](signature, s.secret)
	if err != nil {
		return ErrInvalidSignature
	}

	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || exp != payload.Expires || time.Now().Unix() > exp {
		return ErrInvalidSignature
	}

	if pathID != payload.ID || pathID != user.ID.String() {
		return ErrInvalidSignature
	}

	emailHash := sha256.Sum256([]byte(user.Email))
	want := hex.EncodeToString(emailHash[:])
	if subtle.ConstantTimeCompare([]byte(pathHash), []byte(want)) != 1 || pathHash != payload.Hash {
		return ErrInvalidSignature
	}

	if user.Verified() {
		return nil
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.logger.Info("email verified",
		logger.UserID(user.ID.String()),
		logger.Component("verification"),
	)

	return nil
}
