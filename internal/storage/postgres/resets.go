package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/pg"
)

// ResetStore implements auth.ResetStorage over Postgres.
type ResetStore struct {
	pool *pgxpool.Pool
}

// NewResetStore creates a Postgres-backed password reset request store.
func NewResetStore(pool *pgxpool.Pool) *ResetStore {
	return &ResetStore{pool: pool}
}

// UpsertResetRequest stores the request, replacing any prior one for the
// same email.
func (s *ResetStore) UpsertResetRequest(ctx context.Context, req *auth.ResetRequest) error {
	query := `
		INSERT INTO password_resets (email, token_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, created_at = EXCLUDED.created_at`

	if _, err := s.pool.Exec(ctx, query, req.Email, req.TokenHash, req.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert reset request: %w", err)
	}

	return nil
}

func (s *ResetStore) GetResetRequest(ctx context.Context, email string) (*auth.ResetRequest, error) {
	query := `SELECT email, token_hash, created_at FROM password_resets WHERE email = $1`

	var req auth.ResetRequest
	err := s.pool.QueryRow(ctx, query, email).Scan(&req.Email, &req.TokenHash, &req.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrResetNotAllowed
		}
		return nil, fmt.Errorf("failed to scan reset request: %w", err)
	}

	return &req, nil
}

func (s *ResetStore) DeleteResetRequest(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM password_resets WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to delete reset request: %w", err)
	}
	return nil
}

func (s *ResetStore) DeleteExpiredResetRequests(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM password_resets WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset requests: %w", err)
	}
	return tag.RowsAffected(), nil
}
