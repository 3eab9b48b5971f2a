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

// TokenStore implements auth.TokenStorage over Postgres.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a Postgres-backed bearer token store.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) CreateToken(ctx context.Context, token *auth.Token) error {
	query := `
		INSERT INTO tokens (id, user_id, name, hash, abilities, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	abilities := make([]string, len(token.Abilities))
	for i, a := range token.Abilities {
		abilities[i] = string(a)
	}

	_, err := s.pool.Exec(ctx, query,
		token.ID, token.UserID, token.Name, token.Hash, abilities,
		token.CreatedAt, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

func (s *TokenStore) GetTokenByID(ctx context.Context, id uuid.UUID) (*auth.Token, error) {
	query := `
		SELECT id, user_id, name, hash, abilities, created_at, expires_at
		FROM tokens
		WHERE id = $1`

	var (
		token     auth.Token
		abilities []string
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&token.ID, &token.UserID, &token.Name, &token.Hash, &abilities,
		&token.CreatedAt, &token.ExpiresAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	token.Abilities = make([]auth.Ability, len(abilities))
	for i, a := range abilities {
		token.Abilities[i] = auth.Ability(a)
	}

	return &token, nil
}

// DeleteToken removes a single token and reports whether a row was
// actually deleted. Rotation relies on this to detect a refresh token
// consumed by a concurrent request.
func (s *TokenStore) DeleteToken(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *TokenStore) DeleteUserTokens(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}
	return nil
}

func (s *TokenStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
