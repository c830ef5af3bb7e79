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
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func newGithubTestProvider(t *testing.T, handler http.Handler) *GithubProvider {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider, err := NewGithubProvider(GithubProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://gitscape.example.com/webapi/cli/login/callback",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/access_token",
		APIURL:       srv.URL,
	})
	require.NoError(t, err)
	return provider
}

func TestGithubProviderAuthorizeURL(t *testing.T) {
	provider := newGithubTestProvider(t, http.NotFoundHandler())

	raw := provider.AuthorizeURL("state-1")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "/authorize", u.Path)
	require.Equal(t, "client-id", u.Query().Get("client_id"))
	require.Equal(t, "state-1", u.Query().Get("state"))
	require.Equal(t, "read:user", u.Query().Get("scope"))
}

func TestGithubProviderExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "abc", r.Form.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "gho_secret", "token_type": "bearer"}`))
	})
	provider := newGithubTestProvider(t, mux)

	token, err := provider.Exchange(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "gho_secret", token)
}

func TestGithubProviderExchangeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad_verification_code"}`))
	})
	provider := newGithubTestProvider(t, mux)

	_, err := provider.Exchange(context.Background(), "stale-code")
	require.Error(t, err)
}

func TestGithubProviderProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer gho_secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"login": "alice", "email": "alice@example.com", "name": "Alice Doe", "followers": 12}`))
	})
	provider := newGithubTestProvider(t, mux)

	profile, err := provider.Profile(context.Background(), "gho_secret")
	require.NoError(t, err)
	require.Equal(t, &Profile{
		Login: "alice",
		Email: "alice@example.com",
		Name:  "Alice Doe",
	}, profile)
}

func TestGithubProviderProfileErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer no-login":
			w.Write([]byte(`{"email": "alice@example.com"}`))
		default:
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		}
	})
	provider := newGithubTestProvider(t, mux)
	ctx := context.Background()

	_, err := provider.Profile(ctx, "gho_revoked")
	require.Error(t, err)

	_, err = provider.Profile(ctx, "no-login")
	require.True(t, trace.IsBadParameter(err))
}

func TestGithubProviderConfigValidation(t *testing.T) {
	_, err := NewGithubProvider(GithubProviderConfig{})
	require.True(t, trace.IsBadParameter(err))

	_, err = NewGithubProvider(GithubProviderConfig{ClientID: "id"})
	require.True(t, trace.IsBadParameter(err))

	_, err = NewGithubProvider(GithubProviderConfig{ClientID: "id", ClientSecret: "secret"})
	require.True(t, trace.IsBadParameter(err))

	cfg := GithubProviderConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "https://gitscape.example.com/callback",
	}
	require.NoError(t, cfg.CheckAndSetDefaults())
	require.Equal(t, GithubAuthURL, cfg.AuthURL)
	require.Equal(t, GithubTokenURL, cfg.TokenURL)
	require.Equal(t, GithubAPIURL, cfg.APIURL)
	require.Equal(t, []string{"read:user"}, cfg.Scopes)
}
