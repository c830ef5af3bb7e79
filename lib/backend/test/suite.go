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

// Package test contains the compliance suite every backend implementation
// has to pass.
package test

import (
	"context"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/gitscape/gitscape/lib/backend"
)

// Constructor builds a fresh empty backend for a subtest.
type Constructor func(t *testing.T) backend.Backend

// RunBackendComplianceSuite runs the contract tests shared by all backend
// implementations. The important parts are the not-found error contract
// and exact prefix listing, the services above rely on both.
func RunBackendComplianceSuite(t *testing.T, newBackend Constructor) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		bk := newBackend(t)

		item, err := bk.Get(ctx, backend.NewKey("users", "missing"))
		require.Nil(t, item)
		require.True(t, trace.IsNotFound(err), "expected not found, got %v", err)
	})

	t.Run("PutGet", func(t *testing.T) {
		bk := newBackend(t)

		item := backend.Item{Key: backend.NewKey("users", "alice"), Value: []byte("hello")}
		require.NoError(t, bk.Put(ctx, item))

		out, err := bk.Get(ctx, item.Key)
		require.NoError(t, err)
		require.Equal(t, item.Key, out.Key)
		require.Equal(t, item.Value, out.Value)
	})

	t.Run("Overwrite", func(t *testing.T) {
		bk := newBackend(t)

		key := backend.NewKey("users", "alice")
		require.NoError(t, bk.Put(ctx, backend.Item{Key: key, Value: []byte("one")}))
		require.NoError(t, bk.Put(ctx, backend.Item{Key: key, Value: []byte("two")}))

		out, err := bk.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte("two"), out.Value)
	})

	t.Run("List", func(t *testing.T) {
		bk := newBackend(t)

		for _, name := range []string{"carol", "alice", "bob"} {
			item := backend.Item{Key: backend.NewKey("users", name), Value: []byte(name)}
			require.NoError(t, bk.Put(ctx, item))
		}
		// An entry outside the prefix must not show up.
		other := backend.Item{Key: backend.NewKey("rooms", "a", "b"), Value: []byte("x")}
		require.NoError(t, bk.Put(ctx, other))

		keys, err := bk.List(ctx, backend.ExactKey("users"))
		require.NoError(t, err)
		require.Equal(t, []backend.Key{
			backend.NewKey("users", "alice"),
			backend.NewKey("users", "bob"),
			backend.NewKey("users", "carol"),
		}, keys)
	})

	t.Run("ListExactPrefix", func(t *testing.T) {
		bk := newBackend(t)

		require.NoError(t, bk.Put(ctx, backend.Item{Key: backend.NewKey("users", "alice"), Value: []byte("a")}))
		require.NoError(t, bk.Put(ctx, backend.Item{Key: backend.NewKey("users-archive", "bob"), Value: []byte("b")}))

		keys, err := bk.List(ctx, backend.ExactKey("users"))
		require.NoError(t, err)
		require.Equal(t, []backend.Key{backend.NewKey("users", "alice")}, keys)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		bk := newBackend(t)

		keys, err := bk.List(ctx, backend.ExactKey("nothing"))
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("ValueIsolation", func(t *testing.T) {
		bk := newBackend(t)

		key := backend.NewKey("users", "alice")
		value := []byte("original")
		require.NoError(t, bk.Put(ctx, backend.Item{Key: key, Value: value}))

		// Mutating the caller slice after Put must not affect the store.
		value[0] = 'X'

		out, err := bk.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte("original"), out.Value)

		// Mutating the returned slice must not affect later reads.
		out.Value[0] = 'Y'
		again, err := bk.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte("original"), again.Value)
	})
}
