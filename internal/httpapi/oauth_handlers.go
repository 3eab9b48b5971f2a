package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleOAuthRedirect sends the client to the provider's consent screen
// with a signed state parameter.
func (s *Server) handleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	url, err := s.oauth.AuthURL(provider)
	if err != nil {
		respondError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// handleOAuthCallback reconciles the provider callback into a local user
// and returns a plaintext token with the public user projection.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	user, token, err := s.oauth.HandleCallback(r.Context(), provider, query.Get("state"), query.Get("code"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user.Public(),
	})
}
