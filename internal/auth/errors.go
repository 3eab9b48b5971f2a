package auth

import "errors"

// General errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Token errors.
var (
	ErrTokenNotFound   = errors.New("token not found")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenConsumed   = errors.New("token already consumed")
	ErrUnknownAbility  = errors.New("unknown ability")
	ErrMissingAbility  = errors.New("token lacks required ability")
	ErrEmailUnverified = errors.New("email address is not verified")
)

// Password reset errors.
var (
	ErrResetNotAllowed = errors.New("could not reset password")
)

// Email verification errors.
var (
	ErrInvalidSignature = errors.New("invalid verification signature")
	ErrAlreadyVerified  = errors.New("email already verified")
)

// OAuth errors.
var (
	ErrInvalidState     = errors.New("invalid oauth state")
	ErrProviderExchange = errors.New("provider exchange failed")
	ErrProviderEmail    = errors.New("email missing or invalid")
	ErrProviderName     = errors.New("name missing or invalid")
	ErrProviderID       = errors.New("id missing or invalid")
	ErrUnknownProvider  = errors.New("unknown oauth provider")
)
