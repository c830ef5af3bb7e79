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

// Package defaults contains default constants set in various parts of
// the gitscape codebase
package defaults

import "time"

// Default listen addresses used by the gitscape daemon
const (
	// WebListenAddr serves the web API (CLI login flow, directory,
	// rooms) when the configuration does not specify an address.
	WebListenAddr = "0.0.0.0:3080"

	// DiagListenAddr serves diagnostics (healthz, prometheus metrics)
	// when diagnostics are enabled without an explicit address.
	DiagListenAddr = "127.0.0.1:3434"
)

const (
	// ConfigFilePath is the default path of the daemon configuration
	// file, overridden with --config.
	ConfigFilePath = "/etc/gitscape.yaml"
)

const (
	// CLIAuthSessionTTL is how long a pending CLI authorization session
	// stays valid. After this window the state token is gone and the
	// client has to restart the ceremony.
	CLIAuthSessionTTL = 5 * time.Minute

	// CLIAuthSweepInterval is how often expired CLI authorization
	// sessions are removed from the store.
	CLIAuthSweepInterval = time.Minute

	// CLIAuthPollInterval is how often gsh polls the token endpoint
	// while the user finishes the ceremony in the browser.
	CLIAuthPollInterval = 2 * time.Second

	// HTTPRequestTimeout bounds calls made to the upstream OAuth
	// provider.
	HTTPRequestTimeout = 30 * time.Second

	// ReadHeadersTimeout is a default TCP timeout when we wait
	// for the response headers to arrive.
	ReadHeadersTimeout = 10 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the listeners.
	ShutdownTimeout = 10 * time.Second
)

const (
	// StateTokenLenBytes is the number of random bytes in a CLI
	// authorization state token, hex-encoded on the wire.
	StateTokenLenBytes = 32

	// CodeVerifierLenBytes is the number of random bytes gsh draws for
	// the PKCE code verifier before base64url encoding.
	CodeVerifierLenBytes = 32
)

const (
	// OAuthScope is the scope requested from the provider. Reading the
	// user profile is all this subsystem needs.
	OAuthScope = "read:user"
)
