package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStorage defines the user store operations the domain services need.
// Implementations must enforce email uniqueness at the storage layer and
// return ErrEmailAlreadyExists when CreateUser violates it.
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	SetProviderID(ctx context.Context, id uuid.UUID, provider, externalID string) error
}

// TokenStorage defines the bearer token store. DeleteToken reports whether
// a row was actually removed so refresh rotation can detect an
// already-consumed token.
type TokenStorage interface {
	CreateToken(ctx context.Context, token *Token) error
	GetTokenByID(ctx context.Context, id uuid.UUID) (*Token, error)
	DeleteToken(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteUserTokens(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// ResetStorage defines the password reset request store. Upsert replaces
// any prior request for the same email.
type ResetStorage interface {
	UpsertResetRequest(ctx context.Context, req *ResetRequest) error
	GetResetRequest(ctx context.Context, email string) (*ResetRequest, error)
	DeleteResetRequest(ctx context.Context, email string) error
	DeleteExpiredResetRequests(ctx context.Context, before time.Time) (int64, error)
}
