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

// Package local implements the directory and presence services on top of
// the storage backend.
package local

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/services"
	"github.com/gitscape/gitscape/lib/utils"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// IdentityService manages the user directory over the backend: records,
// the per status indexes and the aggregate counters.
//
// The backend offers no conditional writes, so the multi step transition
// sequence cannot be guarded there. Instead every mutation of one handle
// runs inside a per handle critical section. That serializes writers in
// this process only, which is the deployment model of the directory.
type IdentityService struct {
	backend.Backend

	logger  *slog.Logger
	handles *utils.KeyedMutex
}

// NewIdentityService returns a new instance of IdentityService object
func NewIdentityService(bk backend.Backend) *IdentityService {
	return &IdentityService{
		Backend: bk,
		logger:  logutils.NewPackageLogger(gitscape.ComponentKey, gitscape.ComponentDirectory),
		handles: utils.NewKeyedMutex(),
	}
}

// UpsertUser creates the user on first write or refreshes the stored
// record. A new user starts waitlisted and is recorded in the waitlisted
// index with the counters updated, an existing user keeps its ID,
// CreatedAt and status, only the explicitly provided fields change.
func (s *IdentityService) UpsertUser(ctx context.Context, req services.UpsertUserRequest) (*services.User, error) {
	if err := req.Check(); err != nil {
		return nil, trace.Wrap(err)
	}
	handle := services.NormalizeHandle(req.Handle)

	unlock := s.handles.Lock(handle)
	defer unlock()

	existing, err := s.getUser(ctx, handle)
	if err != nil && !trace.IsNotFound(err) {
		return nil, trace.Wrap(err)
	}

	now := s.Clock().Now().UTC()
	if existing == nil {
		user := &services.User{
			ID:              uuid.NewString(),
			Handle:          handle,
			Email:           req.Email,
			Status:          services.StatusWaitlisted,
			CredentialToken: req.CredentialToken,
			Metadata:        req.Metadata,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.putUser(ctx, user); err != nil {
			return nil, trace.Wrap(err)
		}
		if err := s.addToIndex(ctx, services.StatusWaitlisted, handle); err != nil {
			return nil, trace.Wrap(err)
		}
		if err := s.recomputeStats(ctx); err != nil {
			return nil, trace.Wrap(err)
		}
		s.logger.InfoContext(ctx, "Created directory user", "handle", handle)
		return user, nil
	}

	if req.Email != "" {
		existing.Email = req.Email
	}
	if req.CredentialToken != "" {
		existing.CredentialToken = req.CredentialToken
	}
	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}
	existing.UpdatedAt = now
	if err := s.putUser(ctx, existing); err != nil {
		return nil, trace.Wrap(err)
	}
	return existing, nil
}

// GetUser returns a user by handle.
func (s *IdentityService) GetUser(ctx context.Context, handle string) (*services.User, error) {
	handle = services.NormalizeHandle(handle)
	if handle == "" {
		return nil, trace.BadParameter("missing parameter handle")
	}
	user, err := s.getUser(ctx, handle)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return user, nil
}

// GetUserByToken scans the directory for the user holding the credential
// token. There is no token index, every record is fetched and compared
// in turn, acceptable at the intended directory size.
func (s *IdentityService) GetUserByToken(ctx context.Context, token string) (*services.User, error) {
	if token == "" {
		// Users without a stored token must never match a blank probe.
		return nil, trace.BadParameter("missing parameter token")
	}
	keys, err := s.List(ctx, allUsersPrefix())
	if err != nil {
		return nil, trace.Wrap(err)
	}
	for _, key := range keys {
		item, err := s.Get(ctx, key)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		user, err := services.UnmarshalUser(item.Value)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if user.CredentialToken == token {
			return user, nil
		}
	}
	return nil, trace.NotFound("user with the provided credential token is not found")
}

// ApproveUser moves the user to the approved status.
func (s *IdentityService) ApproveUser(ctx context.Context, handle string) (*services.User, error) {
	user, err := s.setUserStatus(ctx, handle, services.StatusApproved)
	return user, trace.Wrap(err)
}

// DenyUser moves the user to the denied status.
func (s *IdentityService) DenyUser(ctx context.Context, handle string) (*services.User, error) {
	user, err := s.setUserStatus(ctx, handle, services.StatusDenied)
	return user, trace.Wrap(err)
}

// setUserStatus runs the transition sequence: persist the user with the
// new status, move the handle between the two indexes and recompute the
// counters after each index write. The steps are individually durable
// but not atomic as a group. A failure in the middle leaves the record
// and the indexes transiently disagreeing, the error is propagated
// rather than masked and rerunning the same transition converges,
// removal always precedes insertion.
func (s *IdentityService) setUserStatus(ctx context.Context, handle string, target services.Status) (*services.User, error) {
	handle = services.NormalizeHandle(handle)
	if handle == "" {
		return nil, trace.BadParameter("missing parameter handle")
	}
	if err := target.Check(); err != nil {
		return nil, trace.Wrap(err)
	}

	unlock := s.handles.Lock(handle)
	defer unlock()

	user, err := s.getUser(ctx, handle)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if user.Status == target {
		// Already there: one read, no writes.
		return user, nil
	}

	previous := user.Status
	user.Status = target
	user.UpdatedAt = s.Clock().Now().UTC()
	if err := s.putUser(ctx, user); err != nil {
		return nil, trace.Wrap(err)
	}
	if err := s.removeFromIndex(ctx, previous, handle); err != nil {
		return nil, trace.Wrap(err, "user %q is recorded %v but the %v index still lists it", handle, target, previous)
	}
	if err := s.recomputeStats(ctx); err != nil {
		return nil, trace.Wrap(err)
	}
	if err := s.addToIndex(ctx, target, handle); err != nil {
		return nil, trace.Wrap(err, "user %q is recorded %v but the %v index misses it", handle, target, target)
	}
	if err := s.recomputeStats(ctx); err != nil {
		return nil, trace.Wrap(err)
	}

	s.logger.InfoContext(ctx, "Changed user status",
		"handle", handle, "previous", string(previous), "status", string(target))
	return user, nil
}

// GetUsersByStatus returns the users listed in the status index. Records
// that fail to load are skipped with a warning instead of failing the
// listing, the index stays authoritative for membership.
func (s *IdentityService) GetUsersByStatus(ctx context.Context, status services.Status) ([]*services.User, error) {
	if err := status.Check(); err != nil {
		return nil, trace.Wrap(err)
	}
	index, err := s.getIndex(ctx, status)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	users := make([]*services.User, 0, index.Len())
	for _, handle := range index.Handles {
		user, err := s.getUser(ctx, handle)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable user record",
				"handle", handle, "status", string(status), "error", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// GetStats returns the aggregate counters, zero values when nothing was
// ever recorded.
func (s *IdentityService) GetStats(ctx context.Context) (*services.Stats, error) {
	item, err := s.Get(ctx, statsKey())
	if err != nil {
		if trace.IsNotFound(err) {
			return &services.Stats{}, nil
		}
		return nil, trace.Wrap(err)
	}
	stats, err := services.UnmarshalStats(item.Value)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return stats, nil
}

func (s *IdentityService) getUser(ctx context.Context, handle string) (*services.User, error) {
	item, err := s.Get(ctx, userKey(handle))
	if err != nil {
		if trace.IsNotFound(err) {
			return nil, trace.NotFound("user %q is not found", handle)
		}
		return nil, trace.Wrap(err)
	}
	user, err := services.UnmarshalUser(item.Value)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return user, nil
}

func (s *IdentityService) putUser(ctx context.Context, user *services.User) error {
	data, err := services.MarshalUser(user)
	if err != nil {
		return trace.Wrap(err)
	}
	err = s.Put(ctx, backend.Item{Key: userKey(user.Handle), Value: data})
	return trace.Wrap(err)
}

// getIndex loads the status index, an empty one when it was never
// written.
func (s *IdentityService) getIndex(ctx context.Context, status services.Status) (*services.StatusIndex, error) {
	item, err := s.Get(ctx, statusIndexKey(status))
	if err != nil {
		if trace.IsNotFound(err) {
			return services.NewStatusIndex(status), nil
		}
		return nil, trace.Wrap(err)
	}
	index, err := services.UnmarshalStatusIndex(item.Value)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return index, nil
}

func (s *IdentityService) putIndex(ctx context.Context, index *services.StatusIndex) error {
	data, err := services.MarshalStatusIndex(index)
	if err != nil {
		return trace.Wrap(err)
	}
	err = s.Put(ctx, backend.Item{Key: statusIndexKey(index.Status), Value: data})
	return trace.Wrap(err)
}

func (s *IdentityService) addToIndex(ctx context.Context, status services.Status, handle string) error {
	index, err := s.getIndex(ctx, status)
	if err != nil {
		return trace.Wrap(err)
	}
	if !index.Add(handle) {
		return nil
	}
	return trace.Wrap(s.putIndex(ctx, index))
}

func (s *IdentityService) removeFromIndex(ctx context.Context, status services.Status, handle string) error {
	index, err := s.getIndex(ctx, status)
	if err != nil {
		return trace.Wrap(err)
	}
	if !index.Remove(handle) {
		return nil
	}
	return trace.Wrap(s.putIndex(ctx, index))
}

// recomputeStats derives the counters from the index sizes and persists
// them.
func (s *IdentityService) recomputeStats(ctx context.Context) error {
	stats := &services.Stats{LastUpdated: s.Clock().Now().UTC()}
	for _, status := range services.AllStatuses {
		index, err := s.getIndex(ctx, status)
		if err != nil {
			return trace.Wrap(err)
		}
		switch status {
		case services.StatusWaitlisted:
			stats.TotalWaitlisted = index.Len()
		case services.StatusApproved:
			stats.TotalApproved = index.Len()
		case services.StatusDenied:
			stats.TotalDenied = index.Len()
		}
	}
	data, err := services.MarshalStats(stats)
	if err != nil {
		return trace.Wrap(err)
	}
	err = s.Put(ctx, backend.Item{Key: statsKey(), Value: data})
	return trace.Wrap(err)
}
