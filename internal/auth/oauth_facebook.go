package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookConfig holds configuration for the Facebook OAuth provider.
type FacebookConfig struct {
	ClientID     string   `env:"FACEBOOK_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"FACEBOOK_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"FACEBOOK_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"FACEBOOK_OAUTH_SCOPES" envSeparator:"," envDefault:"email,public_profile"`
}

type facebookAdapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewFacebookAdapter creates the Facebook provider adapter.
func NewFacebookAdapter(cfg FacebookConfig) ProviderAdapter {
	return &facebookAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     facebook.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *facebookAdapter) Provider() string {
	return ProviderFacebook
}

func (a *facebookAdapter) AuthURL(state string) string {
	return a.conf.AuthCodeURL(state)
}

// ResolveProfile exchanges the authorization code and fetches the user's
// profile from the Graph API.
func (a *facebookAdapter) ResolveProfile(ctx context.Context, code string) (*ProviderProfile, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("facebook code exchange: %w", err)
	}

	endpoint := "https://graph.facebook.com/me?fields=id,name,email&access_token=" + url.QueryEscape(tok.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook graph: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook graph returned status %d", resp.StatusCode)
	}

	var u struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("facebook graph decode: %w", err)
	}

	return &ProviderProfile{
		Email:      u.Email,
		Name:       u.Name,
		ExternalID: u.ID,
	}, nil
}

var _ ProviderAdapter = (*facebookAdapter)(nil)
