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

package services

import (
	"context"
)

// Presence tracks which users are active in repository rooms. Rooms only
// accumulate members and refresh activity timestamps, nothing evicts a
// member in this design.
type Presence interface {
	// JoinRoom records the user in the room of the repository the URL
	// points at, creating the room on first join.
	JoinRoom(ctx context.Context, repoURL, handle string) (*RoomSession, error)

	// GetRoom returns the room for the repository, trace.NotFound when
	// nobody ever joined it.
	GetRoom(ctx context.Context, owner, name string) (*RoomSession, error)

	// GetRooms returns all rooms.
	GetRooms(ctx context.Context) ([]*RoomSession, error)
}
