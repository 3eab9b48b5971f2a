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

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/token"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

// ProviderProfile is the normalized profile an adapter extracts from a
// provider after exchanging the authorization code.
type ProviderProfile struct {
	Email      string
	Name       string
	ExternalID string
}

// ProviderAdapter hides the provider-specific exchange behind a uniform
// interface. ResolveProfile errors mean the upstream exchange failed and
// must never surface their raw text to clients.
type ProviderAdapter interface {
	Provider() string
	AuthURL(state string) string
	ResolveProfile(ctx context.Context, code string) (*ProviderProfile, error)
}

// stateClaims is the signed content of the OAuth state parameter. Signing
// the state keeps the flow stateless while still rejecting forged or
// replayed-after-expiry callbacks.
type stateClaims struct {
	Nonce    string `json:"n"`
	Provider string `json:"p"`
	Expires  int64  `json:"exp"`
}

// OAuthService reconciles provider identities against local user records,
// keyed by email.
type OAuthService struct {
	users     UserStorage
	passwords *PasswordService
	tokens    *TokenService
	adapters  map[string]ProviderAdapter
	secret    string
	stateTTL  time.Duration
	logger    *slog.Logger
}

// OAuthOption configures an OAuthService during construction.
type OAuthOption func(*OAuthService)

// WithOAuthLogger sets a custom logger for the service.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) {
		s.logger = l
	}
}

// WithStateTTL sets the validity window of the state parameter.
func WithStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) {
		s.stateTTL = ttl
	}
}

// NewOAuthService creates the OAuth reconciliation service for the given
// provider adapters.
func NewOAuthService(users UserStorage, passwords *PasswordService, tokens *TokenService, secret string, adapters []ProviderAdapter, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		adapters:  make(map[string]ProviderAdapter, len(adapters)),
		secret:    secret,
		stateTTL:  10 * time.Minute,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, a := range adapters {
		s.adapters[a.Provider()] = a
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AuthURL builds the provider authorization URL with a signed state
// parameter.
func (s *OAuthService) AuthURL(provider string) (string, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	state, err := token.Generate(stateClaims{
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		Provider: provider,
		Expires:  time.Now().Add(s.stateTTL).Unix(),
	}, s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return adapter.AuthURL(state), nil
}

// HandleCallback runs the reconciliation state machine for a provider
// callback: validate state, exchange the code for a profile, validate the
// profile fields in fixed order (email, name, id), find-or-create the
// local user by email, and issue one general-purpose access token.
// Returns the resolved user and the plaintext token.
func (s *OAuthService) HandleCallback(ctx context.Context, provider, state, code string) (*User, string, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return nil, "", ErrUnknownProvider
	}

	claims, err := token.Parse[stateClaims](state, s.secret)
	if err != nil || claims.Provider != provider || time.Now().Unix() > claims.Expires {
		return nil, "", ErrInvalidState
	}

	profile, err := adapter.ResolveProfile(ctx, code)
	if err != nil {
		// Raw provider errors stay in the logs; clients get a fixed
		// upstream-failure message.
		s.logger.Error("provider exchange failed",
			logger.Provider(provider),
			logger.Error(err),
			logger.Component("oauth"),
		)
		return nil, "", ErrProviderExchange
	}

	// Field order is part of the contract: a multi-field failure always
	// reports the email problem first.
	if profile.Email == "" {
		return nil, "", validator.ValidationErrors{{Field: "email", Message: "email missing or invalid"}}
	}
	if profile.Name == "" {
		return nil, "", validator.ValidationErrors{{Field: "name", Message: "name missing or invalid"}}
	}
	if profile.ExternalID == "" {
		return nil, "", validator.ValidationErrors{{Field: "id", Message: "id missing or invalid"}}
	}

	profile.Email = sanitizer.NormalizeEmail(profile.Email)

	user, err := s.findOrCreate(ctx, provider, profile)
	if err != nil {
		return nil, "", err
	}

	plaintext, err := s.tokens.IssueRegistrationToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, plaintext, nil
}

// findOrCreate resolves the profile to exactly one local user. Existing
// users are reused: repeat logins never overwrite name or password, but an
// empty provider slot gets the external id attached so the link survives.
// A unique-violation during create means a concurrent callback won the
// creation race, so the lookup is retried instead of failing.
func (s *OAuthService) findOrCreate(ctx context.Context, provider string, profile *ProviderProfile) (*User, error) {
	user, err := s.users.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		if err := s.linkProvider(ctx, user, provider, profile.ExternalID); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	placeholder, err := s.passwords.PlaceholderHash()
	if err != nil {
		return nil, err
	}

	user = &User{
		ID:           uuid.New(),
		Email:        profile.Email,
		Name:         profile.Name,
		PasswordHash: placeholder,
		CreatedAt:    time.Now(),
	}
	switch provider {
	case ProviderGoogle:
		user.GoogleID = profile.ExternalID
	case ProviderFacebook:
		user.FacebookID = profile.ExternalID
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			existing, lookupErr := s.users.GetUserByEmail(ctx, profile.Email)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to re-fetch user after create race: %w", lookupErr)
			}
			if err := s.linkProvider(ctx, existing, provider, profile.ExternalID); err != nil {
				return nil, err
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// linkProvider attaches the external id to the user's provider slot when
// it is empty. An already-linked slot is left alone, even if the id
// differs: the first linked identity wins.
func (s *OAuthService) linkProvider(ctx context.Context, user *User, provider, externalID string) error {
	var current *string
	switch provider {
	case ProviderGoogle:
		current = &user.GoogleID
	case ProviderFacebook:
		current = &user.FacebookID
	default:
		return ErrUnknownProvider
	}

	if *current != "" {
		return nil
	}

	if err := s.users.SetProviderID(ctx, user.ID, provider, externalID); err != nil {
		return fmt.Errorf("failed to link provider id: %w", err)
	}
	*current = externalID
	return nil
}

// Providers returns the configured provider names.
func (s *OAuthService) Providers() []string {
	names := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		names = append(names, name)
	}
	return names
}
