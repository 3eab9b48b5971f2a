package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

// HTTPError carries the status code and client-facing message for an
// expected failure.
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondError maps a domain error to its HTTP representation. Validation
// failures render as 422 with a per-field errors map; everything
// unclassified becomes a generic 500 so internal detail never reaches
// clients.
func respondError(w http.ResponseWriter, err error) {
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		errs := make(map[string][]string, len(ve.Fields()))
		for _, field := range ve.Fields() {
			errs[field] = ve.Get(field)
		}
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": ve[0].Message,
			"errors":  errs,
		})
		return
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		respondMessage(w, httpErr.Code, httpErr.Message)
		return
	}

	switch {
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "email already taken",
			"errors":  map[string][]string{"email": {"email already taken"}},
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrTokenNotFound), errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenConsumed):
		respondMessage(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, auth.ErrMissingAbility):
		respondMessage(w, http.StatusForbidden, "token lacks the refresh ability")
	case errors.Is(err, auth.ErrEmailUnverified):
		respondMessage(w, http.StatusForbidden, "email address is not verified")
	case errors.Is(err, auth.ErrInvalidSignature):
		respondMessage(w, http.StatusForbidden, "invalid verification signature")
	case errors.Is(err, auth.ErrAlreadyVerified):
		respondMessage(w, http.StatusOK, "email already verified")
	case errors.Is(err, auth.ErrUserNotFound):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "email does not exist",
			"errors":  map[string][]string{"email": {"email does not exist"}},
		})
	case errors.Is(err, auth.ErrResetNotAllowed):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "could not reset password",
			"errors":  map[string][]string{"email": {"could not reset password"}},
		})
	case errors.Is(err, auth.ErrInvalidState):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "invalid state",
			"errors":  map[string][]string{"state": {"invalid state"}},
		})
	case errors.Is(err, auth.ErrUnknownProvider):
		respondMessage(w, http.StatusNotFound, "unknown provider")
	case errors.Is(err, auth.ErrProviderExchange):
		respondMessage(w, http.StatusBadGateway, "authentication provider is unavailable")
	default:
		respondMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses the request body into dst; malformed bodies render as
// a 422 validation failure on the request itself.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validator.ValidationErrors{{Field: "body", Message: "invalid request body"}}
	}
	return nil
}
