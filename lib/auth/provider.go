/*
 * Gitscape
 * Copyright (C) 2025  Gitscape, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gravitational/trace"
	"golang.org/x/oauth2"

	"github.com/gitscape/gitscape/lib/defaults"
)

const (
	// GithubAuthURL is the Github authorization endpoint
	GithubAuthURL = "https://github.com/login/oauth/authorize"

	// GithubTokenURL is the Github token exchange endpoint
	GithubTokenURL = "https://github.com/login/oauth/access_token"

	// GithubAPIURL is the Github base API URL
	GithubAPIURL = "https://api.github.com"
)

// maxProfileResponseBytes caps how much of the profile response is read.
const maxProfileResponseBytes = 1 << 20

// Profile is the subset of the provider identity the directory records.
type Profile struct {
	// Login is the username
	Login string `json:"login"`
	// Email is the public email, may be empty
	Email string `json:"email"`
	// Name is the display name, may be empty
	Name string `json:"name"`
}

// Provider is the upstream OAuth provider consumed by the CLI
// authorization flow, substituted in tests.
type Provider interface {
	// AuthorizeURL returns the provider authorization page URL with the
	// state token embedded.
	AuthorizeURL(state string) string
	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (string, error)
	// Profile fetches the profile the access token belongs to.
	Profile(ctx context.Context, accessToken string) (*Profile, error)
}

// GithubProviderConfig holds Github OAuth application settings.
type GithubProviderConfig struct {
	// ClientID is the OAuth application client ID.
	ClientID string
	// ClientSecret is the OAuth application client secret.
	ClientSecret string
	// RedirectURL is the callback URL registered with the application.
	RedirectURL string
	// Scopes are the requested token scopes.
	Scopes []string
	// AuthURL overrides the authorization endpoint.
	AuthURL string
	// TokenURL overrides the token exchange endpoint.
	TokenURL string
	// APIURL overrides the API base URL.
	APIURL string
	// Client overrides the HTTP client used for provider calls.
	Client *http.Client
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *GithubProviderConfig) CheckAndSetDefaults() error {
	if c.ClientID == "" {
		return trace.BadParameter("missing parameter ClientID")
	}
	if c.ClientSecret == "" {
		return trace.BadParameter("missing parameter ClientSecret")
	}
	if c.RedirectURL == "" {
		return trace.BadParameter("missing parameter RedirectURL")
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{defaults.OAuthScope}
	}
	if c.AuthURL == "" {
		c.AuthURL = GithubAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = GithubTokenURL
	}
	if c.APIURL == "" {
		c.APIURL = GithubAPIURL
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaults.HTTPRequestTimeout}
	}
	return nil
}

// GithubProvider implements Provider against the Github OAuth and REST
// APIs.
type GithubProvider struct {
	cfg   GithubProviderConfig
	oauth oauth2.Config
}

// NewGithubProvider returns a provider for the given Github OAuth
// application.
func NewGithubProvider(cfg GithubProviderConfig) (*GithubProvider, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &GithubProvider{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// AuthorizeURL returns the Github authorization page URL with the state
// token embedded.
func (p *GithubProvider) AuthorizeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (p *GithubProvider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.cfg.Client)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", trace.Wrap(err)
	}
	if token.AccessToken == "" {
		return "", trace.BadParameter("provider returned an empty access token")
	}
	return token.AccessToken, nil
}

// Profile fetches the Github profile the access token belongs to.
func (p *GithubProvider) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIURL+"/user", nil)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, trace.Errorf("profile request returned status %v", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileResponseBytes)).Decode(&profile); err != nil {
		return nil, trace.Wrap(err)
	}
	if profile.Login == "" {
		return nil, trace.BadParameter("provider profile has no login")
	}
	return &profile, nil
}
