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

// Package config reads the gitscape daemon configuration file and
// applies it onto the runtime service configuration.
package config

import (
	"io"
	"os"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v2"

	"github.com/gitscape/gitscape/lib/utils"
)

// FileConfig structure represents the gitscape configuration stored in
// a config file in YAML format, usually /etc/gitscape.yaml.
type FileConfig struct {
	Global `yaml:"gitscape,omitempty"`

	// Auth is the auth_service section of the config file.
	Auth Auth `yaml:"auth_service,omitempty"`

	// Web is the web_service section of the config file.
	Web Web `yaml:"web_service,omitempty"`

	// Diag is the diag_service section of the config file.
	Diag Diag `yaml:"diag_service,omitempty"`
}

// Global is the gitscape section of the config file, settings shared
// by all services.
type Global struct {
	Log     Log     `yaml:"log,omitempty"`
	Storage Storage `yaml:"storage,omitempty"`
}

// Log configures the process logger.
type Log struct {
	// Severity is the logging level, one of DEBUG, INFO, WARN or
	// ERROR.
	Severity string `yaml:"severity,omitempty"`
	// Format is the output format, text or json.
	Format string `yaml:"format,omitempty"`
}

// Storage selects and configures the storage backend.
type Storage struct {
	// Type is the backend type, memory or s3.
	Type string `yaml:"type,omitempty"`
	// Bucket is the bucket holding all items, s3 only.
	Bucket string `yaml:"bucket,omitempty"`
	// Prefix is an optional object key namespace, s3 only.
	Prefix string `yaml:"prefix,omitempty"`
	// Region is the AWS region, s3 only.
	Region string `yaml:"region,omitempty"`
	// Endpoint points at an S3 compatible server instead of AWS.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Auth is the auth_service section of the config file.
type Auth struct {
	// SessionTTL bounds the CLI login ceremony, a duration string
	// like "5m".
	SessionTTL string `yaml:"session_ttl,omitempty"`
	// Github holds the OAuth application credentials.
	Github GithubConnector `yaml:"github,omitempty"`
}

// GithubConnector holds the OAuth application registered with the
// provider.
type GithubConnector struct {
	// ClientID is the OAuth client ID.
	ClientID string `yaml:"client_id,omitempty"`
	// ClientSecret is the OAuth client secret. Prefer the
	// GITSCAPE_GITHUB_CLIENT_SECRET environment variable over storing
	// it in the file.
	ClientSecret string `yaml:"client_secret,omitempty"`
	// RedirectURL is the public URL of the CLI login callback.
	RedirectURL string `yaml:"redirect_url,omitempty"`
	// Scopes overrides the requested OAuth scopes.
	Scopes []string `yaml:"scopes,omitempty,flow"`
}

// Web is the web_service section of the config file.
type Web struct {
	// ListenAddr is the address the web API listens on.
	ListenAddr string `yaml:"listen_addr,omitempty"`
	// AdminToken guards the administrative surface. Prefer the
	// GITSCAPE_ADMIN_TOKEN environment variable over storing it in
	// the file.
	AdminToken string `yaml:"admin_token,omitempty"`
}

// Diag is the diag_service section of the config file.
type Diag struct {
	// EnabledFlag turns the diagnostics listener on, e.g. "yes".
	EnabledFlag string `yaml:"enabled,omitempty"`
	// ListenAddr is the address diagnostics listen on.
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// Enabled reports whether the diagnostics listener is turned on.
func (d *Diag) Enabled() bool {
	if d.EnabledFlag == "" {
		return false
	}
	v, err := utils.ParseBool(d.EnabledFlag)
	if err != nil {
		return false
	}
	return v
}

// ReadFromFile reads and parses the config file at filePath.
func ReadFromFile(filePath string) (*FileConfig, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, trace.ConvertSystemError(err)
	}
	defer f.Close()
	fc, err := ReadConfig(f)
	if err != nil {
		return nil, trace.BadParameter("failed to parse config file %v: %v", filePath, err)
	}
	return fc, nil
}

// ReadConfig parses a YAML config from a reader. Unknown fields are
// rejected, a typo in a field name should not silently disable a
// setting.
func ReadConfig(reader io.Reader) (*FileConfig, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, trace.Wrap(err, "failed reading configuration")
	}
	var fc FileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return nil, trace.BadParameter("failed parsing configuration: %v", err)
	}
	return &fc, nil
}
