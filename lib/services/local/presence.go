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
	"log/slog"

	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/services"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// PresenceService tracks room membership per repository. Joins on the
// same room race last-write-wins on the backend, the room only ever
// accumulates members so a lost update costs a refreshed timestamp, not
// membership.
type PresenceService struct {
	backend.Backend

	logger *slog.Logger
}

// NewPresenceService returns a new instance of PresenceService object
func NewPresenceService(bk backend.Backend) *PresenceService {
	return &PresenceService{
		Backend: bk,
		logger:  logutils.NewPackageLogger(gitscape.ComponentKey, gitscape.ComponentRooms),
	}
}

// JoinRoom records the user in the room of the repository the URL points
// at, creating the room on first join. The activity timestamp refreshes
// on every join, including repeated ones.
func (s *PresenceService) JoinRoom(ctx context.Context, repoURL, handle string) (*services.RoomSession, error) {
	repo, err := services.ParseRepoURL(repoURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	handle = services.NormalizeHandle(handle)
	if handle == "" {
		return nil, trace.BadParameter("missing parameter handle")
	}

	now := s.Clock().Now().UTC()
	room, err := s.getRoom(ctx, repo.Owner, repo.Name)
	if err != nil {
		if !trace.IsNotFound(err) {
			return nil, trace.Wrap(err)
		}
		room = &services.RoomSession{
			Owner:       repo.Owner,
			Repo:        repo.Name,
			ActiveUsers: []string{},
			CreatedAt:   now,
		}
	}

	if room.Join(handle) {
		s.logger.DebugContext(ctx, "User joined room",
			"handle", handle, "room", repo.Path())
	}
	room.LastActivity = now

	data, err := services.MarshalRoomSession(room)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if err := s.Put(ctx, backend.Item{Key: roomKey(room.Owner, room.Repo), Value: data}); err != nil {
		return nil, trace.Wrap(err)
	}
	return room, nil
}

// GetRoom returns the room for the repository.
func (s *PresenceService) GetRoom(ctx context.Context, owner, name string) (*services.RoomSession, error) {
	room, err := s.getRoom(ctx, services.NormalizeHandle(owner), services.NormalizeHandle(name))
	return room, trace.Wrap(err)
}

// GetRooms returns all rooms. Unreadable rooms are skipped with a
// warning, listing stays available when one record is broken.
func (s *PresenceService) GetRooms(ctx context.Context) ([]*services.RoomSession, error) {
	keys, err := s.List(ctx, allRoomsPrefix())
	if err != nil {
		return nil, trace.Wrap(err)
	}
	rooms := make([]*services.RoomSession, 0, len(keys))
	for _, key := range keys {
		item, err := s.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable room record", "key", key.String(), "error", err)
			continue
		}
		room, err := services.UnmarshalRoomSession(item.Value)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid room record", "key", key.String(), "error", err)
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *PresenceService) getRoom(ctx context.Context, owner, name string) (*services.RoomSession, error) {
	if owner == "" || name == "" {
		return nil, trace.BadParameter("missing repository coordinates")
	}
	item, err := s.Get(ctx, roomKey(owner, name))
	if err != nil {
		if trace.IsNotFound(err) {
			return nil, trace.NotFound("room %v/%v is not found", owner, name)
		}
		return nil, trace.Wrap(err)
	}
	room, err := services.UnmarshalRoomSession(item.Value)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return room, nil
}
