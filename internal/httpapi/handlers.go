package httpapi

import (
	"net/http"

	"github.com/dmitrymomot/authkit/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a user and returns a single general-purpose
// token, then dispatches the verification email off the response path.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := s.passwords.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	plaintext, err := s.tokens.IssueRegistrationToken(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	s.dispatchVerification(user)

	respondJSON(w, http.StatusCreated, map[string]string{"token": plaintext})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := s.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	pair, err := s.tokens.IssueLoginPair(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// handleRefresh rotates the presented refresh token into a fresh pair.
// The middleware chain has already enforced the refresh ability; Rotate
// still rejects tokens consumed by a concurrent rotation.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	pair, err := s.tokens.Rotate(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// handleLogout revokes exactly the presented token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := s.tokens.Revoke(r.Context(), token.ID); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "logged out")
}

// handleLogoutAll revokes every token the user holds.
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := s.tokens.RevokeAll(r.Context(), token.UserID); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "logged out everywhere")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := s.resets.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "password reset link sent")
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := s.resets.ResetPassword(r.Context(), req.Email, req.Token, req.Password); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "password has been reset")
}

// handleUser returns the public projection of the authenticated user.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	respondJSON(w, http.StatusOK, user.Public())
}
