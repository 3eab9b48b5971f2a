package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/authkit/internal/auth"
)

// Authenticate resolves the bearer token and loads its owner into the
// request context. Missing, unresolvable, and expired tokens all fail
// with 401 before any authorization check runs; an expired token is
// revoked as a side effect.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || presented == "" {
			respondMessage(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		token, err := s.tokens.Resolve(r.Context(), presented)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		if token.Expired(time.Now()) {
			s.tokens.RevokeExpired(r.Context(), token)
			respondMessage(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		user, err := s.users.GetUserByID(r.Context(), token.UserID)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		ctx := auth.WithToken(r.Context(), token)
		ctx = auth.WithUser(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAbility rejects authenticated requests whose token lacks the
// ability. Runs after Authenticate so callers prove possession of a valid
// token before learning anything about its abilities.
func RequireAbility(ability auth.Ability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.TokenFromContext(r.Context())
			if !ok {
				respondMessage(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if !token.Can(ability) {
				respondMessage(w, http.StatusForbidden, "token lacks the "+string(ability)+" ability")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerified rejects authenticated requests from users without a
// verified email address.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			respondMessage(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if !user.Verified() {
			respondMessage(w, http.StatusForbidden, "email address is not verified")
			return
		}
		next.ServeHTTP(w, r)
	})
}
