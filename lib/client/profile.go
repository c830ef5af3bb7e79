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
	"os"
	"path/filepath"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v2"
)

const (
	// ProfileDir is the directory under the user's home where gsh
	// keeps its state.
	ProfileDir = ".gsh"

	profileFileName = "profile.yaml"
)

// Profile is what gsh stores for a Gitscape server after a successful
// login.
type Profile struct {
	// ServerAddr is the address of the Gitscape server the profile
	// belongs to.
	ServerAddr string `yaml:"server_addr"`
	// Handle is the directory handle of the logged in user.
	Handle string `yaml:"handle"`
	// Email is the contact address reported by the provider, optional.
	Email string `yaml:"email,omitempty"`
	// AccessToken is the bearer credential minted at login.
	AccessToken string `yaml:"access_token"`
}

// FullProfilePath returns the directory gsh stores its profile in,
// defaulting to ~/.gsh when dir is empty.
func FullProfilePath(dir string) string {
	if dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ProfileDir
	}
	return filepath.Join(home, ProfileDir)
}

// ProfileFromDir reads the profile stored in dir, trace.NotFound when
// there is none.
func ProfileFromDir(dir string) (*Profile, error) {
	path := filepath.Join(dir, profileFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, trace.ConvertSystemError(err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, trace.BadParameter("failed parsing profile %v: %v", path, err)
	}
	return &p, nil
}

// SaveToDir writes the profile to dir, creating the directory when
// missing. The profile holds a live credential so the file is neither
// group nor world readable.
func (p *Profile) SaveToDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return trace.ConvertSystemError(err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(dir, profileFileName), data, 0o600); err != nil {
		return trace.ConvertSystemError(err)
	}
	return nil
}

// RemoveProfile deletes the stored profile. Removing a profile that
// does not exist is not an error.
func RemoveProfile(dir string) error {
	err := os.Remove(filepath.Join(dir, profileFileName))
	if err != nil && !os.IsNotExist(err) {
		return trace.ConvertSystemError(err)
	}
	return nil
}
