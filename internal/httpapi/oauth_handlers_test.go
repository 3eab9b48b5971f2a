package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/internal/storage/memory"
)

// stubAdapter is a provider adapter with canned responses.
type stubAdapter struct {
	provider string
	profile  *auth.ProviderProfile
	err      error
}

func (a *stubAdapter) Provider() string { return a.provider }

func (a *stubAdapter) AuthURL(state string) string {
	return "https://provider.test/auth?state=" + url.QueryEscape(state)
}

func (a *stubAdapter) ResolveProfile(context.Context, string) (*auth.ProviderProfile, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.profile, nil
}

func newOAuthAPI(t *testing.T, adapter *stubAdapter) *testAPI {
	t.Helper()

	users := memory.NewUserStore()
	tokenStore := memory.NewTokenStore()
	notifier := &countingNotifier{}

	tokens := auth.NewTokenService(tokenStore)
	passwords := auth.NewPasswordService(users, auth.WithBcryptCost(bcrypt.MinCost))
	resets := auth.NewResetService(memory.NewResetStore(), users, passwords, tokens, notifier)
	verification := auth.NewVerificationService(users, notifier, testSecret, "http://localhost:8080")
	oauth := auth.NewOAuthService(users, passwords, tokens, testSecret, []auth.ProviderAdapter{adapter})

	srv := NewServer(users, tokens, passwords, resets, verification, oauth, looseConfig())

	return &testAPI{
		handler:  srv.Routes(),
		users:    users,
		tokens:   tokenStore,
		notifier: notifier,
		tokenSvc: tokens,
	}
}

// redirectState follows the redirect endpoint and extracts the signed
// state the provider would echo back.
func redirectState(t *testing.T, api *testAPI, provider string) string {
	t.Helper()

	rec := api.do(t, http.MethodGet, "/auth/redirect/"+provider, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestOAuthRedirect(t *testing.T) {
	t.Parallel()

	t.Run("known provider redirects to the consent screen", func(t *testing.T) {
		t.Parallel()

		api := newOAuthAPI(t, &stubAdapter{provider: auth.ProviderGoogle})
		rec := api.do(t, http.MethodGet, "/auth/redirect/google", "", nil)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "https://provider.test/auth")
	})

	t.Run("unknown provider is 404", func(t *testing.T) {
		t.Parallel()

		api := newOAuthAPI(t, &stubAdapter{provider: auth.ProviderGoogle})
		rec := api.do(t, http.MethodGet, "/auth/redirect/github", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOAuthCallback(t *testing.T) {
	t.Parallel()

	t.Run("creates the user and returns token with public profile", func(t *testing.T) {
		t.Parallel()

		api := newOAuthAPI(t, &stubAdapter{
			provider: auth.ProviderGoogle,
			profile:  &auth.ProviderProfile{Email: "alice@example.com", Name: "Alice", ExternalID: "g-123"},
		})

		state := redirectState(t, api, "google")
		rec := api.do(t, http.MethodGet, "/auth/callback/google?state="+url.QueryEscape(state)+"&code=ok", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		require.NotEmpty(t, body["token"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, "Alice", user["name"])

		stored, err := api.users.GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "g-123", stored.GoogleID)
	})

	t.Run("missing state is 422", func(t *testing.T) {
		t.Parallel()

		api := newOAuthAPI(t, &stubAdapter{
			provider: auth.ProviderGoogle,
			profile:  &auth.ProviderProfile{Email: "alice@example.com", Name: "Alice", ExternalID: "g-123"},
		})

		rec := api.do(t, http.MethodGet, "/auth/callback/google?code=ok", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("provider exchange failure is 502 without upstream detail", func(t *testing.T) {
		t.Parallel()

		api := newOAuthAPI(t, &stubAdapter{
			provider: auth.ProviderGoogle,
			err:      errors.New("invalid_grant: code expired"),
		})

		state := redirectState(t, api, "google")
		rec := api.do(t, http.MethodGet, "/auth/callback/google?state="+url.QueryEscape(state)+"&code=bad", "", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "invalid_grant")
	})

	t.Run("profile without email is 422 naming the field", func(t *testing.T) {
		t.Parallel()

		api := newOAuthAPI(t, &stubAdapter{
			provider: auth.ProviderGoogle,
			profile:  &auth.ProviderProfile{Name: "Alice", ExternalID: "g-123"},
		})

		state := redirectState(t, api, "google")
		rec := api.do(t, http.MethodGet, "/auth/callback/google?state="+url.QueryEscape(state)+"&code=ok", "", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "email missing or invalid")
	})
}

func TestOAuthCallbackRateLimitExempt(t *testing.T) {
	t.Parallel()

	// Callback routes sit outside the auth throttling group; repeated
	// provider retries must not starve a legitimate sign-in.
	api := newOAuthAPI(t, &stubAdapter{
		provider: auth.ProviderGoogle,
		profile:  &auth.ProviderProfile{Email: "alice@example.com", Name: "Alice", ExternalID: "g-123"},
	})

	for range 10 {
		state := redirectState(t, api, "google")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/callback/google?state="+url.QueryEscape(state)+"&code=ok", nil)
		api.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
