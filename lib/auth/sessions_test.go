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

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/gitscape/gitscape/lib/defaults"
)

func newSessionStore(t *testing.T, clock clockwork.Clock) *MemorySessionStore {
	store, err := NewMemorySessionStore(MemorySessionStoreConfig{Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionStoreRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newSessionStore(t, clock)
	ctx := context.Background()

	_, err := store.GetSession(ctx, "state-1")
	require.True(t, trace.IsNotFound(err))

	sess := Session{
		State:         "state-1",
		CodeChallenge: "challenge",
		CreatedAt:     clock.Now().UTC(),
	}
	require.NoError(t, store.UpsertSession(ctx, sess))

	got, err := store.GetSession(ctx, "state-1")
	require.NoError(t, err)
	require.Equal(t, sess, *got)

	// Updates overwrite in place.
	sess.Code = "abc"
	require.NoError(t, store.UpsertSession(ctx, sess))
	got, err = store.GetSession(ctx, "state-1")
	require.NoError(t, err)
	require.Equal(t, "abc", got.Code)

	require.NoError(t, store.DeleteSession(ctx, "state-1"))
	_, err = store.GetSession(ctx, "state-1")
	require.True(t, trace.IsNotFound(err))

	// Deleting twice is fine.
	require.NoError(t, store.DeleteSession(ctx, "state-1"))
}

func TestSessionStoreUpsertValidation(t *testing.T) {
	store := newSessionStore(t, clockwork.NewFakeClock())

	err := store.UpsertSession(context.Background(), Session{})
	require.True(t, trace.IsBadParameter(err))
}

func TestSessionStoreLazyExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newSessionStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.UpsertSession(ctx, Session{
		State:     "state-1",
		CreatedAt: clock.Now().UTC(),
	}))

	clock.Advance(defaults.CLIAuthSessionTTL - time.Second)
	_, err := store.GetSession(ctx, "state-1")
	require.NoError(t, err)

	// Reads past the TTL behave as if the session never existed, even
	// if the sweep has not fired yet.
	clock.Advance(time.Second)
	_, err = store.GetSession(ctx, "state-1")
	require.True(t, trace.IsNotFound(err))
	require.Zero(t, store.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newSessionStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.UpsertSession(ctx, Session{
		State:     "old",
		CreatedAt: clock.Now().UTC(),
	}))

	// Wait for the sweeper to arm its ticker before driving the clock.
	clock.BlockUntil(1)
	clock.Advance(defaults.CLIAuthSessionTTL)

	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSessionStoreConfigValidation(t *testing.T) {
	_, err := NewMemorySessionStore(MemorySessionStoreConfig{TTL: -time.Second})
	require.True(t, trace.IsBadParameter(err))

	var cfg MemorySessionStoreConfig
	require.NoError(t, cfg.CheckAndSetDefaults())
	require.Equal(t, defaults.CLIAuthSessionTTL, cfg.TTL)
	require.Equal(t, defaults.CLIAuthSweepInterval, cfg.SweepInterval)
	require.NotNil(t, cfg.Clock)
}
