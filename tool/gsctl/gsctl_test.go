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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gitscape.yaml")
	err := os.WriteFile(path, []byte("gitscape:\n  storage:\n    type: memory\n"), 0o600)
	require.NoError(t, err)
	return path
}

// Each Run opens a fresh memory backend, so the commands below only
// exercise single invocation behavior.
func TestRun(t *testing.T) {
	ctx := context.Background()
	configPath := writeTestConfig(t)

	t.Run("version", func(t *testing.T) {
		require.NoError(t, Run(ctx, []string{"version"}))
	})

	t.Run("users add", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "users", "add", "Alice", "--email", "alice@example.com"})
		require.NoError(t, err)
	})

	t.Run("users ls empty", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "users", "ls"})
		require.NoError(t, err)
	})

	t.Run("users ls bad status", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "users", "ls", "--status", "frozen"})
		require.True(t, trace.IsBadParameter(err), "got %v", err)
	})

	t.Run("users approve missing", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "users", "approve", "ghost"})
		require.True(t, trace.IsNotFound(err), "got %v", err)
	})

	t.Run("users deny missing", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "users", "deny", "--force", "ghost"})
		require.True(t, trace.IsNotFound(err), "got %v", err)
	})

	t.Run("stats", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "stats"})
		require.NoError(t, err)
	})

	t.Run("rooms ls", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "rooms", "ls"})
		require.NoError(t, err)
	})

	t.Run("unknown command", func(t *testing.T) {
		err := Run(ctx, []string{"--config", configPath, "frobnicate"})
		require.Error(t, err)
	})
}
