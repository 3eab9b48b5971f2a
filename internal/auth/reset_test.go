package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/validator"
)

type resetFixture struct {
	users    *fakeUserStore
	tokens   *TokenService
	resets   *fakeResetStore
	notifier *MockResetNotifier
	svc      *ResetService
	user     *User
}

func newResetFixture(t *testing.T, opts ...ResetOption) *resetFixture {
	t.Helper()

	users := newFakeUserStore()
	resets := newFakeResetStore()
	tokens := NewTokenService(newFakeTokenStore())
	passwords := NewPasswordService(users, WithBcryptCost(bcrypt.MinCost))
	notifier := &MockResetNotifier{}

	user, err := passwords.Register(context.Background(), "Alice", "alice@example.com", "Str0ng!Pass1")
	require.NoError(t, err)

	return &resetFixture{
		users:    users,
		tokens:   tokens,
		resets:   resets,
		notifier: notifier,
		svc:      NewResetService(resets, users, passwords, tokens, notifier, opts...),
		user:     user,
	}
}

func TestResetService_ForgotPassword(t *testing.T) {
	t.Parallel()

	t.Run("unknown email is reported", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)

		err := f.svc.ForgotPassword(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		f.notifier.AssertNotCalled(t, "SendPasswordReset")
	})

	t.Run("known email stores a hashed request and dispatches once", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)
		var sent string
		f.notifier.On("SendPasswordReset", mock.Anything, "alice@example.com", "Alice", mock.Anything).
			Run(func(args mock.Arguments) { sent = args.String(3) }).
			Return(nil).Once()

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
		f.notifier.AssertExpectations(t)
		require.NotEmpty(t, sent)

		req, err := f.resets.GetResetRequest(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.NotContains(t, string(req.TokenHash), sent, "plaintext token must not be stored")
	})

	t.Run("new request replaces the prior one", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)
		var tokens []string
		f.notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { tokens = append(tokens, args.String(3)) }).
			Return(nil).Twice()

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))

		// The first token no longer matches the stored hash.
		err := f.svc.ResetPassword(context.Background(), "alice@example.com", tokens[0], "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrResetNotAllowed)

		err = f.svc.ResetPassword(context.Background(), "alice@example.com", tokens[1], "N3w!Passw0rd")
		assert.NoError(t, err)
	})

	t.Run("dispatch failure does not fail the request", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)
		f.notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(assert.AnError).Once()

		assert.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
	})
}

func TestResetService_ResetPassword(t *testing.T) {
	t.Parallel()

	capture := func(f *resetFixture) *string {
		var token string
		f.notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { token = args.String(3) }).
			Return(nil)
		return &token
	}

	t.Run("valid token swaps the password and revokes all tokens", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)
		token := capture(f)

		// An active session that must die with the reset.
		_, _, err := f.tokens.Issue(context.Background(), f.user.ID, "access_token", []Ability{AbilityAccess}, 0)
		require.NoError(t, err)

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
		require.NoError(t, f.svc.ResetPassword(context.Background(), "alice@example.com", *token, "N3w!Passw0rd"))

		updated, err := f.users.GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword(updated.PasswordHash, []byte("N3w!Passw0rd")))
		assert.Error(t, bcrypt.CompareHashAndPassword(updated.PasswordHash, []byte("Str0ng!Pass1")))

		// Request is consumed: the same token cannot be replayed.
		err = f.svc.ResetPassword(context.Background(), "alice@example.com", *token, "An0ther!Pass1")
		assert.ErrorIs(t, err, ErrResetNotAllowed)
	})

	t.Run("wrong token and expired request fail identically", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t, WithResetWindow(time.Nanosecond))
		token := capture(f)

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
		time.Sleep(time.Millisecond)

		expiredErr := f.svc.ResetPassword(context.Background(), "alice@example.com", *token, "N3w!Passw0rd")
		assert.ErrorIs(t, expiredErr, ErrResetNotAllowed)

		wrongErr := f.svc.ResetPassword(context.Background(), "alice@example.com", "forged-token", "N3w!Passw0rd")
		assert.ErrorIs(t, wrongErr, ErrResetNotAllowed)

		assert.Equal(t, expiredErr.Error(), wrongErr.Error())
	})

	t.Run("weak replacement password is rejected before any lookup", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)
		token := capture(f)

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))

		err := f.svc.ResetPassword(context.Background(), "alice@example.com", *token, "weak")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrResetNotAllowed)
	})

	t.Run("replacement password over the hash limit fails validation", func(t *testing.T) {
		t.Parallel()

		f := newResetFixture(t)
		token := capture(f)

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))

		long := "Aa1!" + strings.Repeat("x", 76)
		err := f.svc.ResetPassword(context.Background(), "alice@example.com", *token, long)
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		// The request survives, so a valid retry still works.
		err = f.svc.ResetPassword(context.Background(), "alice@example.com", *token, "N3w!Passw0rd")
		assert.NoError(t, err)
	})
}
