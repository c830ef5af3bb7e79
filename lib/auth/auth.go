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

// Package auth implements the CLI authorization flow. A terminal client
// starts a handshake with a PKCE challenge and a state token, sends the
// user through the provider's authorization page in a browser, and
// polls the token endpoint until the browser leg has delivered the
// authorization code. The server keeps the handshake in a TTL bound
// session store and upserts the authenticated user into the directory
// when the exchange completes.
package auth

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/defaults"
	"github.com/gitscape/gitscape/lib/services"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// OAuth2 error codes returned by the token exchange.
const (
	// ErrorInvalidRequest is returned when the callback query is
	// malformed or carries a provider error.
	ErrorInvalidRequest = "invalid_request"

	// ErrorInvalidGrant is returned when the code verifier does not
	// hash to the challenge stored at the start of the flow.
	ErrorInvalidGrant = "invalid_grant"

	// ErrorAuthorizationPending is returned while the browser leg has
	// not delivered an authorization code yet.
	ErrorAuthorizationPending = "authorization_pending"

	// ErrorTokenExchangeFailed is returned when the upstream provider
	// rejects the code or the profile fetch fails.
	ErrorTokenExchangeFailed = "token_exchange_failed"
)

// ServerConfig holds dependencies and settings of the authorization
// server.
type ServerConfig struct {
	// Identity is the user directory users are upserted into on login.
	Identity services.Identity
	// Provider is the upstream OAuth provider.
	Provider Provider
	// Sessions overrides the handshake session store. When unset the
	// server runs its own in-memory store and closes it on Close.
	Sessions SessionStore
	// SessionTTL bounds how long a handshake stays valid.
	SessionTTL time.Duration
	// Clock overrides time in tests.
	Clock clockwork.Clock
	// Logger overrides the package logger.
	Logger *slog.Logger
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *ServerConfig) CheckAndSetDefaults() error {
	if c.Identity == nil {
		return trace.BadParameter("missing parameter Identity")
	}
	if c.Provider == nil {
		return trace.BadParameter("missing parameter Provider")
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaults.CLIAuthSessionTTL
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = logutils.NewPackageLogger(gitscape.ComponentKey, gitscape.ComponentAuth)
	}
	return nil
}

// Server drives the CLI authorization flow against the session store,
// the upstream provider and the user directory.
type Server struct {
	cfg          ServerConfig
	sessions     SessionStore
	ownsSessions bool
}

// NewServer returns an authorization server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	s := &Server{cfg: cfg, sessions: cfg.Sessions}
	if s.sessions == nil {
		store, err := NewMemorySessionStore(MemorySessionStoreConfig{
			TTL:   cfg.SessionTTL,
			Clock: cfg.Clock,
		})
		if err != nil {
			return nil, trace.Wrap(err)
		}
		s.sessions = store
		s.ownsSessions = true
	}
	return s, nil
}

// Close releases resources owned by the server.
func (s *Server) Close() error {
	if s.ownsSessions {
		return trace.Wrap(s.sessions.Close())
	}
	return nil
}

// StartCLILoginRequest is a request to begin the CLI authorization
// flow.
type StartCLILoginRequest struct {
	// CodeChallenge is the base64url encoded SHA-256 digest of the
	// client's code verifier.
	CodeChallenge string `json:"code_challenge"`
	// State is the client generated token correlating the browser leg
	// with the polling leg.
	State string `json:"state"`
}

// StartCLILoginResponse tells the client where to send the browser and
// how long the handshake stays valid.
type StartCLILoginResponse struct {
	// AuthURL is the provider authorization page URL with the state
	// token embedded.
	AuthURL string `json:"auth_url"`
	// ExpiresIn is the handshake lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}

// StartCLILogin validates the challenge, opens a handshake session and
// returns the provider authorization URL for the browser leg.
func (s *Server) StartCLILogin(ctx context.Context, req StartCLILoginRequest) (*StartCLILoginResponse, error) {
	if req.CodeChallenge == "" || req.State == "" {
		return nil, trace.BadParameter("Missing required parameters")
	}
	if err := ValidateCodeChallenge(req.CodeChallenge); err != nil {
		return nil, trace.Wrap(err)
	}

	err := s.sessions.UpsertSession(ctx, Session{
		State:         req.State,
		CodeChallenge: req.CodeChallenge,
		CreatedAt:     s.cfg.Clock.Now().UTC(),
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	cliLoginsStarted.Inc()
	s.cfg.Logger.InfoContext(ctx, "Started CLI login handshake")
	return &StartCLILoginResponse{
		AuthURL:   s.cfg.Provider.AuthorizeURL(req.State),
		ExpiresIn: int(s.cfg.SessionTTL / time.Second),
	}, nil
}

// CompleteLogin handles the provider redirect landing on the callback.
// It validates the query, stores the authorization code into the
// handshake session and leaves the session for the polling client to
// consume. A trace.NotFound return means the handshake is gone, either
// expired or never started.
func (s *Server) CompleteLogin(ctx context.Context, q url.Values) error {
	if errParam := q.Get("error"); errParam != "" {
		description := q.Get("error_description")
		if description == "" {
			description = errParam
		}
		cliCallbacks.WithLabelValues("provider_error").Inc()
		return trace.OAuth2(ErrorInvalidRequest, description, q)
	}
	code := q.Get("code")
	if code == "" {
		cliCallbacks.WithLabelValues("provider_error").Inc()
		return trace.OAuth2(ErrorInvalidRequest, "code query param must be set", q)
	}
	state := q.Get("state")
	if state == "" {
		cliCallbacks.WithLabelValues("provider_error").Inc()
		return trace.OAuth2(ErrorInvalidRequest, "missing state query param", q)
	}

	sess, err := s.sessions.GetSession(ctx, state)
	if err != nil {
		cliCallbacks.WithLabelValues("expired").Inc()
		return trace.Wrap(err)
	}

	sess.Code = code
	if err := s.sessions.UpsertSession(ctx, *sess); err != nil {
		return trace.Wrap(err)
	}

	cliCallbacks.WithLabelValues("success").Inc()
	s.cfg.Logger.InfoContext(ctx, "Received authorization code for CLI login")
	return nil
}

// ExchangeCLITokenRequest is a request to finish the CLI authorization
// flow.
type ExchangeCLITokenRequest struct {
	// State is the handshake state token.
	State string `json:"state"`
	// CodeVerifier is the PKCE verifier whose digest was registered at
	// the start of the flow.
	CodeVerifier string `json:"code_verifier"`
}

// ExchangeCLITokenResponse carries the provider access token and the
// directory record of the user who completed the flow.
type ExchangeCLITokenResponse struct {
	// AccessToken is the provider access token.
	AccessToken string `json:"access_token"`
	// User is the directory record upserted on login.
	User *services.User `json:"user"`
}

// ExchangeCLIToken verifies the PKCE verifier against the handshake,
// trades the stored authorization code for an access token, upserts the
// authenticated user into the directory and consumes the session. While
// the browser leg has not landed yet it fails with
// authorization_pending and leaves the session in place, so the client
// is expected to poll. A wrong verifier also leaves the session in
// place, the legitimate holder can still retry.
func (s *Server) ExchangeCLIToken(ctx context.Context, req ExchangeCLITokenRequest) (*ExchangeCLITokenResponse, error) {
	if req.State == "" || req.CodeVerifier == "" {
		return nil, trace.BadParameter("Missing required parameters")
	}

	sess, err := s.sessions.GetSession(ctx, req.State)
	if err != nil {
		cliTokenExchanges.WithLabelValues("not_found").Inc()
		return nil, trace.Wrap(err)
	}

	if !VerifyCodeChallenge(req.CodeVerifier, sess.CodeChallenge) {
		cliTokenExchanges.WithLabelValues(ErrorInvalidGrant).Inc()
		return nil, trace.OAuth2(ErrorInvalidGrant, "Invalid code_verifier", nil)
	}

	if sess.Code == "" {
		cliTokenExchanges.WithLabelValues(ErrorAuthorizationPending).Inc()
		return nil, trace.OAuth2(ErrorAuthorizationPending, "Authorization is pending", nil)
	}

	accessToken, err := s.cfg.Provider.Exchange(ctx, sess.Code)
	if err != nil {
		s.cfg.Logger.ErrorContext(ctx, "Provider code exchange failed", "error", err)
		cliTokenExchanges.WithLabelValues(ErrorTokenExchangeFailed).Inc()
		return nil, trace.OAuth2(ErrorTokenExchangeFailed, "Token exchange failed", nil)
	}

	profile, err := s.cfg.Provider.Profile(ctx, accessToken)
	if err != nil {
		s.cfg.Logger.ErrorContext(ctx, "Provider profile fetch failed", "error", err)
		cliTokenExchanges.WithLabelValues(ErrorTokenExchangeFailed).Inc()
		return nil, trace.OAuth2(ErrorTokenExchangeFailed, "Token exchange failed", nil)
	}

	if err := s.sessions.DeleteSession(ctx, req.State); err != nil {
		return nil, trace.Wrap(err)
	}

	upsert := services.UpsertUserRequest{
		Handle:          profile.Login,
		Email:           profile.Email,
		CredentialToken: accessToken,
	}
	if profile.Name != "" {
		upsert.Metadata = map[string]string{"name": profile.Name}
	}
	user, err := s.cfg.Identity.UpsertUser(ctx, upsert)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	cliTokenExchanges.WithLabelValues("success").Inc()
	s.cfg.Logger.InfoContext(ctx, "Completed CLI login", "handle", user.Handle)
	return &ExchangeCLITokenResponse{
		AccessToken: accessToken,
		User:        user,
	}, nil
}
