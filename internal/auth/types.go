package auth

import (
	"time"

	"github.com/google/uuid"
)

// Ability is a named permission attached to a bearer token. The set is
// closed: issuing a token with anything outside the declared constants
// fails with ErrUnknownAbility.
type Ability string

const (
	// AbilityAccess authorizes general API access.
	AbilityAccess Ability = "access"

	// AbilityRefresh authorizes token rotation only.
	AbilityRefresh Ability = "refresh"

	// AbilityAll matches every required ability.
	AbilityAll Ability = "*"
)

// knownAbilities is the closed set accepted at issue time.
var knownAbilities = map[Ability]struct{}{
	AbilityAccess:  {},
	AbilityRefresh: {},
	AbilityAll:     {},
}

// Valid reports whether the ability belongs to the closed set.
func (a Ability) Valid() bool {
	_, ok := knownAbilities[a]
	return ok
}

// OAuth provider identifiers.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User represents a local user account. Exactly one row exists per email
// regardless of how the account was created. PasswordHash is never nil:
// OAuth-only accounts carry a random placeholder hash that no password
// can match in practice.
type User struct {
	ID              uuid.UUID
	Email           string
	Name            string
	PasswordHash    []byte
	GoogleID        string
	FacebookID      string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
}

// Verified reports whether the user's email has been verified.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// Public returns the projection safe to return to API clients.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

// PublicUser is the client-facing user projection. It never carries the
// password hash or provider ids.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Token is an issued bearer token. Hash is the SHA-256 of the secret; the
// plaintext secret is returned once at creation and never again.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Hash      []byte
	Abilities []Ability
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Can reports whether the token carries the required ability. A token
// holding AbilityAll satisfies every requirement.
func (t *Token) Can(required Ability) bool {
	for _, a := range t.Abilities {
		if a == required || a == AbilityAll {
			return true
		}
	}
	return false
}

// Expired reports whether the token is past its expiry. Tokens without an
// expiry never expire.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// TokenPair is the result of a login or rotation: two distinct secrets in
// plaintext form, returned to the caller exactly once.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ResetRequest is a pending password reset, keyed by email. At most one
// live request per email; creating a new one replaces the prior.
type ResetRequest struct {
	Email     string
	TokenHash []byte
	CreatedAt time.Time
}
