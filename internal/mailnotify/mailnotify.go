// Package mailnotify renders and dispatches the transactional auth
// emails: password reset tokens and email verification links. It
// implements the notifier interfaces the auth services depend on.
package mailnotify

import (
	"context"
	"fmt"
	"html"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/email"
)

// Notifier dispatches auth emails through an email.Sender.
type Notifier struct {
	sender  email.Sender
	appName string
}

// New creates the auth mail notifier. appName appears in subjects and
// greetings.
func New(sender email.Sender, appName string) *Notifier {
	return &Notifier{sender: sender, appName: appName}
}

// SendPasswordReset emails the plaintext reset token to the account owner.
func (n *Notifier) SendPasswordReset(ctx context.Context, to, name, token string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>We received a request to reset the password for your %s account.</p>
<p>Your reset token:</p>
<p><code>%s</code></p>
<p>The token is valid for 60 minutes. If you did not request a reset, you can ignore this email.</p>`,
		html.EscapeString(displayName(name)), html.EscapeString(n.appName), html.EscapeString(token))

	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("Reset your %s password", n.appName),
		BodyHTML: body,
		Tag:      "password-reset",
	}); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}

// SendEmailVerification emails the signed verification link.
func (n *Notifier) SendEmailVerification(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Please confirm your email address for %s by clicking the link below.</p>
<p><a href="%s">Verify email address</a></p>
<p>The link is valid for 60 minutes. If you did not create an account, no further action is required.</p>`,
		html.EscapeString(displayName(name)), html.EscapeString(n.appName), link)

	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("Verify your %s email address", n.appName),
		BodyHTML: body,
		Tag:      "email-verification",
	}); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

var (
	_ auth.ResetNotifier        = (*Notifier)(nil)
	_ auth.VerificationNotifier = (*Notifier)(nil)
)
