package mailnotify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/internal/mailnotify"
	"github.com/dmitrymomot/authkit/pkg/email"
)

type captureSender struct {
	sent []email.SendEmailParams
	err  error
}

func (s *captureSender) SendEmail(_ context.Context, params email.SendEmailParams) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func TestSendPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("includes token and tags the message", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := mailnotify.New(sender, "Acme")

		err := notifier.SendPasswordReset(context.Background(), "alice@example.com", "Alice", "reset-token-123")
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)

		msg := sender.sent[0]
		assert.Equal(t, "alice@example.com", msg.SendTo)
		assert.Equal(t, "Reset your Acme password", msg.Subject)
		assert.Equal(t, "password-reset", msg.Tag)
		assert.Contains(t, msg.BodyHTML, "reset-token-123")
		assert.Contains(t, msg.BodyHTML, "Alice")
	})

	t.Run("escapes HTML in the name", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := mailnotify.New(sender, "Acme")

		err := notifier.SendPasswordReset(context.Background(), "alice@example.com", "<script>x</script>", "tok")
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)
		assert.NotContains(t, sender.sent[0].BodyHTML, "<script>")
	})

	t.Run("empty name falls back to a generic greeting", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := mailnotify.New(sender, "Acme")

		err := notifier.SendPasswordReset(context.Background(), "alice@example.com", "", "tok")
		require.NoError(t, err)
		assert.Contains(t, sender.sent[0].BodyHTML, "Hi there")
	})

	t.Run("wraps sender failures", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{err: errors.New("smtp down")}
		notifier := mailnotify.New(sender, "Acme")

		err := notifier.SendPasswordReset(context.Background(), "alice@example.com", "Alice", "tok")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password reset")
	})
}

func TestSendEmailVerification(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	notifier := mailnotify.New(sender, "Acme")

	link := "http://localhost:8080/email/verify/abc/def?expires=1&signature=s"
	err := notifier.SendEmailVerification(context.Background(), "alice@example.com", "Alice", link)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "Verify your Acme email address", msg.Subject)
	assert.Equal(t, "email-verification", msg.Tag)
	assert.Contains(t, msg.BodyHTML, link)
}
