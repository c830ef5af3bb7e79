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

package config

import (
	"os"
	"time"

	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape/lib/defaults"
	"github.com/gitscape/gitscape/lib/service"
	"github.com/gitscape/gitscape/lib/utils"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// Environment variables overriding secrets from the config file.
const (
	// GithubClientSecretEnvVar overrides auth_service.github.client_secret.
	GithubClientSecretEnvVar = "GITSCAPE_GITHUB_CLIENT_SECRET"

	// AdminTokenEnvVar overrides web_service.admin_token.
	AdminTokenEnvVar = "GITSCAPE_ADMIN_TOKEN"
)

// CommandLineFlags holds the gitscape daemon command line flags.
type CommandLineFlags struct {
	// ConfigFile is the path --config points at.
	ConfigFile string

	// Debug enables verbose logging and the pprof endpoints.
	Debug bool

	// ListenAddr overrides the web listener address.
	ListenAddr string

	// DiagAddr enables diagnostics and overrides their listener
	// address.
	DiagAddr string
}

// ReadConfigFile reads /etc/gitscape.yaml (or whatever is passed via
// the --config flag). A missing default file is not an error, the
// daemon then runs on defaults.
func ReadConfigFile(cliConfigPath string) (*FileConfig, error) {
	configFilePath := defaults.ConfigFilePath
	// --config tells us to use a specific conf. file:
	if cliConfigPath != "" {
		configFilePath = cliConfigPath
		if !utils.FileExists(configFilePath) {
			return nil, trace.NotFound("file %s is not found", configFilePath)
		}
	}
	// default config doesn't exist? quietly return:
	if !utils.FileExists(configFilePath) {
		return nil, nil
	}
	return ReadFromFile(configFilePath)
}

// ApplyFileConfig applies the configuration from the YAML file onto
// the gitscape runtime config.
func ApplyFileConfig(fc *FileConfig, cfg *service.Config) error {
	// no config file? no problem
	if fc == nil {
		return nil
	}

	applyString(fc.Log.Severity, &cfg.Log.Severity)
	applyString(fc.Log.Format, &cfg.Log.Format)

	applyString(fc.Storage.Type, &cfg.Storage.Type)
	applyString(fc.Storage.Bucket, &cfg.Storage.Bucket)
	applyString(fc.Storage.Prefix, &cfg.Storage.Prefix)
	applyString(fc.Storage.Region, &cfg.Storage.Region)
	applyString(fc.Storage.Endpoint, &cfg.Storage.Endpoint)

	if fc.Auth.SessionTTL != "" {
		ttl, err := time.ParseDuration(fc.Auth.SessionTTL)
		if err != nil {
			return trace.BadParameter("invalid auth_service session_ttl %q: %v", fc.Auth.SessionTTL, err)
		}
		cfg.Auth.SessionTTL = ttl
	}
	applyString(fc.Auth.Github.ClientID, &cfg.Auth.Github.ClientID)
	applyString(fc.Auth.Github.ClientSecret, &cfg.Auth.Github.ClientSecret)
	applyString(fc.Auth.Github.RedirectURL, &cfg.Auth.Github.RedirectURL)
	if len(fc.Auth.Github.Scopes) != 0 {
		cfg.Auth.Github.Scopes = fc.Auth.Github.Scopes
	}

	applyString(fc.Web.ListenAddr, &cfg.Web.ListenAddr)
	applyString(fc.Web.AdminToken, &cfg.Web.AdminToken)

	if fc.Diag.Enabled() {
		cfg.Diag.Enabled = true
	}
	applyString(fc.Diag.ListenAddr, &cfg.Diag.ListenAddr)

	return nil
}

// Configure merges the command line flags, the configuration file and
// the environment into the runtime config, and installs the process
// logger.
func Configure(clf *CommandLineFlags, cfg *service.Config) error {
	fc, err := ReadConfigFile(clf.ConfigFile)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := ApplyFileConfig(fc, cfg); err != nil {
		return trace.Wrap(err)
	}

	// Secrets prefer the environment over the config file.
	if secret := os.Getenv(GithubClientSecretEnvVar); secret != "" {
		cfg.Auth.Github.ClientSecret = secret
	}
	if token := os.Getenv(AdminTokenEnvVar); token != "" {
		cfg.Web.AdminToken = token
	}

	if clf.Debug {
		cfg.Debug = true
		cfg.Log.Severity = "DEBUG"
	}
	if clf.ListenAddr != "" {
		cfg.Web.ListenAddr = clf.ListenAddr
	}
	if clf.DiagAddr != "" {
		cfg.Diag.Enabled = true
		cfg.Diag.ListenAddr = clf.DiagAddr
	}

	logger, _, err := logutils.Initialize(logutils.Config{
		Severity: cfg.Log.Severity,
		Format:   cfg.Log.Format,
	})
	if err != nil {
		return trace.Wrap(err)
	}
	cfg.Logger = logger

	return trace.Wrap(service.ValidateConfig(cfg))
}

// applyString takes 'src' and overwrites target with it, if 'src' is
// not empty, returning true if it actually did so.
func applyString(src string, target *string) bool {
	if src != "" {
		*target = src
		return true
	}
	return false
}
