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

package local

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/backend/memory"
	"github.com/gitscape/gitscape/lib/services"
)

// countingBackend wraps a backend and counts the operations reaching it.
type countingBackend struct {
	backend.Backend

	gets  atomic.Int64
	puts  atomic.Int64
	lists atomic.Int64
}

func (c *countingBackend) Get(ctx context.Context, key backend.Key) (*backend.Item, error) {
	c.gets.Add(1)
	return c.Backend.Get(ctx, key)
}

func (c *countingBackend) Put(ctx context.Context, item backend.Item) error {
	c.puts.Add(1)
	return c.Backend.Put(ctx, item)
}

func (c *countingBackend) List(ctx context.Context, prefix backend.Key) ([]backend.Key, error) {
	c.lists.Add(1)
	return c.Backend.List(ctx, prefix)
}

func (c *countingBackend) reset() {
	c.gets.Store(0)
	c.puts.Store(0)
	c.lists.Store(0)
}

func newIdentityFixture(t *testing.T) (*IdentityService, *countingBackend, clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 12, 10, 0, 0, 0, time.UTC))
	mem, err := memory.New(memory.Config{Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	counting := &countingBackend{Backend: mem}
	return NewIdentityService(counting), counting, clock
}

func requireIndexMembership(t *testing.T, s *IdentityService, handle string, expected services.Status) {
	t.Helper()
	ctx := context.Background()
	for _, status := range services.AllStatuses {
		index, err := s.getIndex(ctx, status)
		require.NoError(t, err)
		if status == expected {
			require.True(t, index.Contains(handle), "%q missing from %v index", handle, status)
		} else {
			require.False(t, index.Contains(handle), "%q unexpectedly in %v index", handle, status)
		}
	}
}

func TestUpsertUserCreates(t *testing.T) {
	s, _, clock := newIdentityFixture(t)
	ctx := context.Background()

	user, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	require.NotEmpty(t, user.ID)
	require.Equal(t, "alice", user.Handle)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, services.StatusWaitlisted, user.Status)
	require.Equal(t, clock.Now().UTC(), user.CreatedAt)
	require.Equal(t, user.CreatedAt, user.UpdatedAt)

	requireIndexMembership(t, s, "alice", services.StatusWaitlisted)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalWaitlisted)
	require.Equal(t, 0, stats.TotalApproved)
	require.Equal(t, 0, stats.TotalDenied)
	require.Equal(t, clock.Now().UTC(), stats.LastUpdated)
}

func TestUpsertUserPreservesIdentity(t *testing.T) {
	s, _, clock := newIdentityFixture(t)
	ctx := context.Background()

	created, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	clock.Advance(time.Hour)

	updated, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice", CredentialToken: "gho_abc"})
	require.NoError(t, err)

	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	// Fields not passed stay as they were.
	require.Equal(t, "alice@example.com", updated.Email)
	require.Equal(t, "gho_abc", updated.CredentialToken)
	require.Equal(t, services.StatusWaitlisted, updated.Status)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalWaitlisted, "updating must not double count")
}

func TestUpsertUserValidation(t *testing.T) {
	s, _, _ := newIdentityFixture(t)

	_, err := s.UpsertUser(context.Background(), services.UpsertUserRequest{Handle: "   "})
	require.True(t, trace.IsBadParameter(err))
}

func TestGetUser(t *testing.T) {
	s, _, _ := newIdentityFixture(t)
	ctx := context.Background()

	_, err := s.GetUser(ctx, "ghost")
	require.True(t, trace.IsNotFound(err))

	_, err = s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice"})
	require.NoError(t, err)

	user, err := s.GetUser(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Handle)
}

func TestApproveUser(t *testing.T) {
	s, _, _ := newIdentityFixture(t)
	ctx := context.Background()

	for _, handle := range []string{"alice", "bob"} {
		_, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: handle})
		require.NoError(t, err)
	}

	user, err := s.ApproveUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, services.StatusApproved, user.Status)

	requireIndexMembership(t, s, "alice", services.StatusApproved)
	requireIndexMembership(t, s, "bob", services.StatusWaitlisted)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalWaitlisted)
	require.Equal(t, 1, stats.TotalApproved)
	require.Equal(t, 0, stats.TotalDenied)
}

func TestApproveUserIdempotent(t *testing.T) {
	s, counting, _ := newIdentityFixture(t)
	ctx := context.Background()

	_, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice"})
	require.NoError(t, err)
	_, err = s.ApproveUser(ctx, "alice")
	require.NoError(t, err)

	counting.reset()

	user, err := s.ApproveUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, services.StatusApproved, user.Status)

	// The repeated transition reads the record once and writes nothing.
	require.Equal(t, int64(1), counting.gets.Load())
	require.Equal(t, int64(0), counting.puts.Load())
	require.Equal(t, int64(0), counting.lists.Load())
}

func TestDenyAfterApprove(t *testing.T) {
	s, _, _ := newIdentityFixture(t)
	ctx := context.Background()

	_, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice"})
	require.NoError(t, err)

	_, err = s.ApproveUser(ctx, "alice")
	require.NoError(t, err)

	user, err := s.DenyUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, services.StatusDenied, user.Status)

	requireIndexMembership(t, s, "alice", services.StatusDenied)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.TotalWaitlisted)
	require.Equal(t, 0, stats.TotalApproved)
	require.Equal(t, 1, stats.TotalDenied)
}

func TestApproveMissingUser(t *testing.T) {
	s, _, _ := newIdentityFixture(t)

	_, err := s.ApproveUser(context.Background(), "ghost")
	require.True(t, trace.IsNotFound(err))
}

func TestGetUserByToken(t *testing.T) {
	s, _, _ := newIdentityFixture(t)
	ctx := context.Background()

	_, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice", CredentialToken: "gho_alice"})
	require.NoError(t, err)
	_, err = s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "bob", CredentialToken: "gho_bob"})
	require.NoError(t, err)
	_, err = s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "carol"})
	require.NoError(t, err)

	user, err := s.GetUserByToken(ctx, "gho_bob")
	require.NoError(t, err)
	require.Equal(t, "bob", user.Handle)

	_, err = s.GetUserByToken(ctx, "gho_unknown")
	require.True(t, trace.IsNotFound(err))

	// A blank probe must not match carol's empty stored token.
	_, err = s.GetUserByToken(ctx, "")
	require.True(t, trace.IsBadParameter(err))
}

func TestGetUsersByStatus(t *testing.T) {
	s, counting, _ := newIdentityFixture(t)
	ctx := context.Background()

	for _, handle := range []string{"carol", "alice", "bob"} {
		_, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: handle})
		require.NoError(t, err)
	}
	_, err := s.ApproveUser(ctx, "bob")
	require.NoError(t, err)

	users, err := s.GetUsersByStatus(ctx, services.StatusWaitlisted)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Handle)
	require.Equal(t, "carol", users[1].Handle)

	approved, err := s.GetUsersByStatus(ctx, services.StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, "bob", approved[0].Handle)

	_, err = s.GetUsersByStatus(ctx, services.Status("bogus"))
	require.True(t, trace.IsBadParameter(err))

	// A record that no longer parses is skipped, not fatal.
	err = counting.Backend.Put(ctx, backend.Item{Key: userKey("carol"), Value: []byte("{broken")})
	require.NoError(t, err)

	users, err = s.GetUsersByStatus(ctx, services.StatusWaitlisted)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "alice", users[0].Handle)
}

func TestGetStatsZeroDefault(t *testing.T) {
	s, _, _ := newIdentityFixture(t)

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, services.Stats{}, *stats)
}

func TestUpsertUserConcurrentSameHandle(t *testing.T) {
	s, _, _ := newIdentityFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertUser(ctx, services.UpsertUserRequest{Handle: "alice"})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	index, err := s.getIndex(ctx, services.StatusWaitlisted)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, index.Handles)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalWaitlisted, "racing creations must not double count")
}
