package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/logger"
)

// handleVerifyNotice tells an authenticated, unverified user that a
// verification link is pending.
func (s *Server) handleVerifyNotice(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if user.Verified() {
		respondMessage(w, http.StatusOK, "email already verified")
		return
	}

	respondMessage(w, http.StatusOK, "email address is not verified yet, check your inbox")
}

// handleVerifyEmail validates the signed link and marks the email
// verified. Repeat verification succeeds without side effects.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	err := s.verification.Verify(r.Context(), user,
		chi.URLParam(r, "id"),
		chi.URLParam(r, "hash"),
		r.URL.Query().Get("expires"),
		r.URL.Query().Get("signature"),
	)
	if err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "email verified")
}

// handleResendVerification dispatches a fresh verification link, or
// reports that the email is already verified.
func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := s.verification.SendVerification(r.Context(), user); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "verification link sent")
}

// dispatchVerification sends the verification email without blocking the
// response. Failures are logged; the user can always request a resend.
func (s *Server) dispatchVerification(user *auth.User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.verification.SendVerification(ctx, user); err != nil {
			s.logger.Error("failed to send verification email",
				logger.UserID(user.ID.String()),
				logger.Error(err),
				logger.Component("httpapi"),
			)
		}
	}()
}
