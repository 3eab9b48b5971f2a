package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/pg"
)

// UserStore implements auth.UserStorage over Postgres.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a Postgres-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) CreateUser(ctx context.Context, user *auth.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, google_id, facebook_id, email_verified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash,
		nullableString(user.GoogleID), nullableString(user.FacebookID),
		user.EmailVerifiedAt, user.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	query := `
		SELECT id, email, name, password_hash, google_id, facebook_id, email_verified_at, created_at
		FROM users
		WHERE id = $1`

	return s.scanUser(s.pool.QueryRow(ctx, query, id))
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `
		SELECT id, email, name, password_hash, google_id, facebook_id, email_verified_at, created_at
		FROM users
		WHERE email = $1`

	return s.scanUser(s.pool.QueryRow(ctx, query, email))
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	// Idempotent: an already-set timestamp is kept.
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET email_verified_at = COALESCE(email_verified_at, $2) WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SetProviderID(ctx context.Context, id uuid.UUID, provider, externalID string) error {
	var column string
	switch provider {
	case auth.ProviderGoogle:
		column = "google_id"
	case auth.ProviderFacebook:
		column = "facebook_id"
	default:
		return auth.ErrUnknownProvider
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s = $2 WHERE id = $1`, column), id, externalID)
	if err != nil {
		return fmt.Errorf("failed to set provider id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func (s *UserStore) scanUser(r row) (*auth.User, error) {
	var (
		user       auth.User
		googleID   *string
		facebookID *string
	)

	err := r.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&googleID, &facebookID, &user.EmailVerifiedAt, &user.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if googleID != nil {
		user.GoogleID = *googleID
	}
	if facebookID != nil {
		user.FacebookID = *facebookID
	}

	return &user, nil
}

// nullableString maps the empty string to SQL NULL so partial unique
// indexes on provider ids ignore unlinked accounts.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
