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

package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gravitational/roundtrip"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/auth"
	"github.com/gitscape/gitscape/lib/defaults"
	"github.com/gitscape/gitscape/lib/utils"
)

// LoginConfig configures the CLI login ceremony.
type LoginConfig struct {
	// ServerAddr is the address of the Gitscape server.
	ServerAddr string
	// Browser controls how the authorization URL is opened. The value
	// gitscape.BrowserNone disables opening a browser.
	Browser string
	// Insecure allows talking to servers with invalid TLS certificates.
	Insecure bool
	// PollInterval overrides how often the token endpoint is polled
	// while the user finishes the ceremony in the browser.
	PollInterval time.Duration
	// Stderr is where ceremony progress is printed.
	Stderr io.Writer
	// Clock paces the polling, overridden in tests.
	Clock clockwork.Clock
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (cfg *LoginConfig) CheckAndSetDefaults() error {
	if cfg.ServerAddr == "" {
		return trace.BadParameter("missing parameter ServerAddr")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.CLIAuthPollInterval
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

func (cfg *LoginConfig) clientParams() []roundtrip.ClientParam {
	if !cfg.Insecure {
		return nil
	}
	fmt.Fprintf(cfg.Stderr, "WARNING: you are using an insecure connection to Gitscape server %v\n", cfg.ServerAddr)
	insecureClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return []roundtrip.ClientParam{roundtrip.HTTPClient(insecureClient)}
}

// Login runs the CLI login ceremony. It registers a PKCE protected
// session with the server, sends the user to the identity provider in
// a browser and polls the token endpoint until the authorization code
// is redeemed or the session expires.
func Login(ctx context.Context, cfg LoginConfig) (*auth.ExchangeCLITokenResponse, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	clt, err := NewWebClient(cfg.ServerAddr, cfg.clientParams()...)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	pong, err := clt.Ping(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if err := utils.CheckVersions(gitscape.Version, pong.ServerVersion); err != nil {
		return nil, trace.Wrap(err)
	}

	verifier, err := utils.CryptoRandomBase64(defaults.CodeVerifierLenBytes)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	state, err := utils.CryptoRandomHex(defaults.StateTokenLenBytes)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	start, err := clt.StartCLILogin(ctx, auth.StartCLILoginRequest{
		CodeChallenge: auth.ComputeCodeChallenge(verifier),
		State:         state,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	PromptBrowserLogin(cfg.Stderr, cfg.Browser, start.AuthURL)

	// The server forgets the session once its TTL passes, polling any
	// longer cannot succeed.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(start.ExpiresIn)*time.Second)
	defer cancel()

	resp, err := pollCLIToken(ctx, clt, cfg, auth.ExchangeCLITokenRequest{
		State:        state,
		CodeVerifier: verifier,
	})
	return resp, trace.Wrap(err)
}

func pollCLIToken(ctx context.Context, clt *WebClient, cfg LoginConfig, req auth.ExchangeCLITokenRequest) (*auth.ExchangeCLITokenResponse, error) {
	ticker := cfg.Clock.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		resp, err := clt.ExchangeCLIToken(ctx, req)
		switch {
		case err == nil:
			return resp, nil
		case !IsAuthorizationPending(err):
			return nil, trace.Wrap(err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, trace.LimitExceeded("login session expired before the authorization completed")
			}
			return nil, trace.Wrap(ctx.Err())
		case <-ticker.Chan():
		}
	}
}
