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
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func TestProfileRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p := &Profile{
		ServerAddr:  "https://gitscape.example.com:3080",
		Handle:      "alice",
		Email:       "alice@example.com",
		AccessToken: "gho_secret",
	}
	require.NoError(t, p.SaveToDir(dir))

	// The stored file carries a live credential.
	fi, err := os.Stat(filepath.Join(dir, profileFileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	got, err := ProfileFromDir(dir)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestProfileMissing(t *testing.T) {
	t.Parallel()

	_, err := ProfileFromDir(t.TempDir())
	require.True(t, trace.IsNotFound(err), "got %v", err)
}

func TestProfileOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	first := &Profile{ServerAddr: "https://a.example.com", Handle: "alice", AccessToken: "t1"}
	require.NoError(t, first.SaveToDir(dir))
	second := &Profile{ServerAddr: "https://b.example.com", Handle: "bob", AccessToken: "t2"}
	require.NoError(t, second.SaveToDir(dir))

	got, err := ProfileFromDir(dir)
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestRemoveProfile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p := &Profile{ServerAddr: "https://gitscape.example.com", Handle: "alice", AccessToken: "t"}
	require.NoError(t, p.SaveToDir(dir))
	require.NoError(t, RemoveProfile(dir))
	_, err := ProfileFromDir(dir)
	require.True(t, trace.IsNotFound(err), "got %v", err)

	// Removing twice is fine.
	require.NoError(t, RemoveProfile(dir))
}

func TestFullProfilePath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/tmp/custom", FullProfilePath("/tmp/custom"))
	require.Contains(t, FullProfilePath(""), ProfileDir)
}
