// Package maintenance runs periodic cleanup off the request path:
// expired bearer tokens and stale password reset requests.
package maintenance

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Sweeper deletes expired tokens and stale reset requests on a fixed
// interval. Runs are idempotent so overlapping deployments are harmless.
type Sweeper struct {
	tokens      auth.TokenStorage
	resets      auth.ResetStorage
	resetWindow time.Duration
	interval    time.Duration
	logger      *slog.Logger
}

// Option configures a Sweeper during construction.
type Option func(*Sweeper)

// WithLogger sets a custom logger for the sweeper.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// WithInterval sets how often the sweep runs.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		s.interval = interval
	}
}

// WithResetWindow sets the reset request validity window the sweep
// purges beyond. Must match the reset service configuration.
func WithResetWindow(window time.Duration) Option {
	return func(s *Sweeper) {
		s.resetWindow = window
	}
}

// New creates a sweeper over the token and reset stores.
func New(tokens auth.TokenStorage, resets auth.ResetStorage, opts ...Option) *Sweeper {
	s := &Sweeper{
		tokens:      tokens,
		resets:      resets,
		resetWindow: 60 * time.Minute,
		interval:    24 * time.Hour,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run sweeps once immediately, then on every tick until the context is
// canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	tokens, err := s.tokens.DeleteExpiredTokens(ctx, now)
	if err != nil {
		s.logger.Error("failed to sweep expired tokens",
			logger.Error(err),
			logger.Component("maintenance"),
		)
	}

	resets, err := s.resets.DeleteExpiredResetRequests(ctx, now.Add(-s.resetWindow))
	if err != nil {
		s.logger.Error("failed to sweep expired reset requests",
			logger.Error(err),
			logger.Component("maintenance"),
		)
	}

	if tokens > 0 || resets > 0 {
		s.logger.Info("maintenance sweep completed",
			slog.Int64("expired_tokens", tokens),
			slog.Int64("expired_resets", resets),
			logger.Component("maintenance"),
		)
	}
}
