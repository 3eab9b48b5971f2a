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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Token names as they appear in the issued token rows.
const (
	tokenNameAccess  = "access_token"
	tokenNameRefresh = "refresh_token"
)

// TokenService issues, resolves, rotates, and revokes bearer tokens.
type TokenService struct {
	storage TokenStorage
	logger  *slog.Logger

	accessTTL        time.Duration // login access tokens; 0 = no expiry
	refreshTTL       time.Duration
	rotatedAccessTTL time.Duration
}

// TokenOption configures a TokenService during construction.
type TokenOption func(*TokenService)

// WithTokenLogger sets a custom logger for the service.
func WithTokenLogger(l *slog.Logger) TokenOption {
	return func(s *TokenService) {
		s.logger = l
	}
}

// WithAccessTokenTTL sets the lifetime of login access tokens. Zero means
// the token never expires.
func WithAccessTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		s.accessTTL = ttl
	}
}

// WithRefreshTokenTTL sets the lifetime of refresh tokens.
func WithRefreshTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		s.refreshTTL = ttl
	}
}

// WithRotatedAccessTTL sets the lifetime of access tokens minted by Rotate.
func WithRotatedAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		s.rotatedAccessTTL = ttl
	}
}

// NewTokenService creates a bearer token service backed by the given store.
func NewTokenService(storage TokenStorage, opts ...TokenOption) *TokenService {
	s := &TokenService{
		storage:          storage,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		accessTTL:        0,
		refreshTTL:       7 * 24 * time.Hour,
		rotatedAccessTTL: 60 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Issue mints a new bearer token for the user. The returned string is the
// plaintext form "<tokenID>|<secret>" and is never retrievable again; only
// the SHA-256 hash of the secret is persisted. A zero ttl means no expiry.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, name string, abilities []Ability, ttl time.Duration) (*Token, string, error) {
	if len(abilities) == 0 {
		return nil, "", ErrUnknownAbility
	}
	for _, a := range abilities {
		if !a.Valid() {
			return nil, "", fmt.Errorf("%w: %q", ErrUnknownAbility, a)
		}
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(secret)
	hash := sha256.Sum256([]byte(encoded))

	token := &Token{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Hash:      hash[:],
		Abilities: abilities,
		CreatedAt: time.Now(),
	}
	if ttl > 0 {
		expiresAt := token.CreatedAt.Add(ttl)
		token.ExpiresAt = &expiresAt
	}

	if err := s.storage.CreateToken(ctx, token); err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, token.ID.String() + "|" + encoded, nil
}

// Resolve looks up the token matching a presented plaintext secret. The
// stored hash is compared in constant time so resolution does not leak
// secret prefixes through timing.
func (s *TokenService) Resolve(ctx context.Context, presented string) (*Token, error) {
	id, secret, ok := strings.Cut(presented, "|")
	if !ok {
		return nil, ErrTokenNotFound
	}

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTokenNotFound
	}

	token, err := s.storage.GetTokenByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	hash := sha256.Sum256([]byte(secret))
	if subtle.ConstantTimeCompare(hash[:], token.Hash) != 1 {
		return nil, ErrTokenNotFound
	}

	return token, nil
}

// Revoke deletes a single token. Revoking a token that no longer exists is
// not an error.
func (s *TokenService) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	if _, err := s.storage.DeleteToken(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeAll deletes every token belonging to the user.
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.storage.DeleteUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// IssueLoginPair mints the access + refresh pair returned on credential
// login. The access token carries AbilityAccess with the configured login
// TTL; the refresh token carries AbilityRefresh only.
func (s *TokenService) IssueLoginPair(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	_, access, err := s.Issue(ctx, userID, tokenNameAccess, []Ability{AbilityAccess}, s.accessTTL)
	if err != nil {
		return nil, err
	}

	_, refresh, err := s.Issue(ctx, userID, tokenNameRefresh, []Ability{AbilityRefresh}, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueRegistrationToken mints the single general-purpose token returned
// on registration, before verification flows apply.
func (s *TokenService) IssueRegistrationToken(ctx context.Context, userID uuid.UUID) (string, error) {
	_, plaintext, err := s.Issue(ctx, userID, tokenNameAccess, []Ability{AbilityAll}, 0)
	return plaintext, err
}

// Rotate consumes a refresh token and mints a fresh pair. The delete must
// remove the presented row; if it removed nothing the token was already
// consumed by a concurrent rotation and the caller gets ErrTokenConsumed,
// so only one of two racing rotations wins.
func (s *TokenService) Rotate(ctx context.Context, current *Token) (*TokenPair, error) {
	if !current.Can(AbilityRefresh) {
		return nil, ErrMissingAbility
	}
	if current.Expired(time.Now()) {
		return nil, ErrTokenExpired
	}

	deleted, err := s.storage.DeleteToken(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if !deleted {
		return nil, ErrTokenConsumed
	}

	_, access, err := s.Issue(ctx, current.UserID, tokenNameAccess, []Ability{AbilityAll}, s.rotatedAccessTTL)
	if err != nil {
		return nil, err
	}

	_, refresh, err := s.Issue(ctx, current.UserID, tokenNameRefresh, []Ability{AbilityRefresh}, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RevokeExpired deletes a token that was found expired at resolution time.
// Failures are logged, not returned: the request already failed
// authentication and the sweep will catch the row later.
func (s *TokenService) RevokeExpired(ctx context.Context, token *Token) {
	if _, err := s.storage.DeleteToken(ctx, token.ID); err != nil {
		s.logger.Error("failed to revoke expired token",
			logger.TokenID(token.ID.String()),
			logger.UserID(token.UserID.String()),
			logger.Error(err),
			logger.Component("token"),
		)
	}
}
