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

// Package service wires the gitscape daemon together: storage backend,
// directory and presence services, the CLI auth server, the web API
// listener and the diagnostics listener.
package service

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape/lib/defaults"
)

// Storage backend types understood by the daemon.
const (
	// StorageMemory keeps all state in process memory, lost on restart.
	StorageMemory = "memory"
	// StorageS3 keeps all state in an S3 bucket.
	StorageS3 = "s3"
)

// Config structure is used to initialize the gitscape daemon. Some
// settings are global while others are grouped into sections.
type Config struct {
	// Debug turns on verbose logging and the pprof endpoints on the
	// diagnostics listener.
	Debug bool

	// Console is the writer startup messages go to.
	Console io.Writer

	// Logger is the process logger, a component logger when unset.
	Logger *slog.Logger

	// Log holds the logging preferences the logger is built from.
	Log LogConfig

	// Storage configures the backend holding directory and presence
	// state.
	Storage StorageConfig

	// Auth configures the CLI login flow.
	Auth AuthConfig

	// Web configures the web API listener.
	Web WebConfig

	// Diag configures the diagnostics listener.
	Diag DiagConfig

	// Clock overrides time in tests.
	Clock clockwork.Clock
}

// LogConfig holds the logging preferences of the process.
type LogConfig struct {
	// Severity is the minimum emitted level, INFO when empty.
	Severity string

	// Format is the output encoding, text or json.
	Format string
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Type is the backend type, StorageMemory or StorageS3.
	Type string

	// Bucket is the bucket holding all items, required for s3.
	Bucket string

	// Prefix is an optional object key namespace.
	Prefix string

	// Region is the AWS region, taken from the environment when empty.
	Region string

	// Endpoint points the s3 backend at an S3 compatible server
	// instead of AWS.
	Endpoint string
}

// AuthConfig is the configuration of the CLI login flow.
type AuthConfig struct {
	// Github holds the OAuth application credentials.
	Github GithubConfig

	// SessionTTL bounds how long a started CLI login ceremony stays
	// redeemable.
	SessionTTL time.Duration
}

// GithubConfig holds the OAuth application registered with the
// provider.
type GithubConfig struct {
	// ClientID is the OAuth client ID.
	ClientID string

	// ClientSecret is the OAuth client secret.
	ClientSecret string

	// RedirectURL is the public URL of the CLI login callback,
	// e.g. https://gitscape.example.com:3080/webapi/cli/login/callback.
	RedirectURL string

	// Scopes overrides the requested OAuth scopes.
	Scopes []string
}

// WebConfig is the configuration of the web API listener.
type WebConfig struct {
	// ListenAddr is the address the web API listens on.
	ListenAddr string

	// AdminToken guards the administrative surface. When empty the
	// administrative endpoints are disabled.
	AdminToken string
}

// DiagConfig is the configuration of the diagnostics listener.
type DiagConfig struct {
	// Enabled turns the diagnostics listener on.
	Enabled bool

	// ListenAddr is the address diagnostics listen on.
	ListenAddr string
}

// MakeDefaultConfig creates a new Config structure and populates it
// with defaults.
func MakeDefaultConfig() (config *Config) {
	config = &Config{}
	ApplyDefaults(config)
	return config
}

// ApplyDefaults applies default values to the existing config
// structure.
func ApplyDefaults(cfg *Config) {
	cfg.Console = os.Stdout
	cfg.Storage.Type = StorageMemory
	cfg.Auth.SessionTTL = defaults.CLIAuthSessionTTL
	cfg.Web.ListenAddr = defaults.WebListenAddr
	cfg.Diag.ListenAddr = defaults.DiagListenAddr
}

// ValidateConfig checks the daemon configuration for errors a typo in
// the config file commonly produces.
func ValidateConfig(cfg *Config) error {
	switch cfg.Storage.Type {
	case StorageMemory:
	case StorageS3:
		if cfg.Storage.Bucket == "" {
			return trace.BadParameter("storage type %q requires a bucket", StorageS3)
		}
	default:
		return trace.BadParameter("unsupported storage type %q, use %q or %q", cfg.Storage.Type, StorageMemory, StorageS3)
	}
	if cfg.Auth.Github.ClientID == "" {
		return trace.BadParameter("missing github client_id, register an OAuth application and set auth_service.github.client_id")
	}
	if cfg.Auth.Github.ClientSecret == "" {
		return trace.BadParameter("missing github client_secret, set auth_service.github.client_secret or GITSCAPE_GITHUB_CLIENT_SECRET")
	}
	if cfg.Auth.Github.RedirectURL == "" {
		return trace.BadParameter("missing github redirect_url, point it at /webapi/cli/login/callback on this server")
	}
	if cfg.Auth.SessionTTL < 0 {
		return trace.BadParameter("negative session_ttl %v", cfg.Auth.SessionTTL)
	}
	if cfg.Web.ListenAddr == "" {
		return trace.BadParameter("missing web_service listen_addr")
	}
	if cfg.Diag.Enabled && cfg.Diag.ListenAddr == "" {
		return trace.BadParameter("missing diag_service listen_addr")
	}
	return nil
}
