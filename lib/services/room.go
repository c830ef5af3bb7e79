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
	"encoding/json"
	"slices"
	"time"

	"github.com/gravitational/trace"
)

// RoomSession tracks who is active in the room of one repository. Rooms
// are created on first join and updated in place afterwards, there is no
// delete and no eviction of members, activity is only refreshed through
// LastActivity.
type RoomSession struct {
	// Owner is the normalized repository owner.
	Owner string `json:"owner"`
	// Repo is the normalized repository name.
	Repo string `json:"repo"`
	// ActiveUsers is the sorted set of member handles.
	ActiveUsers []string `json:"active_users"`
	// CreatedAt is when the first user joined.
	CreatedAt time.Time `json:"created_at"`
	// LastActivity is refreshed by every join.
	LastActivity time.Time `json:"last_activity"`
}

// Join inserts the handle into the member set, reporting whether it was
// newly added. Duplicate joins keep the set unchanged.
func (r *RoomSession) Join(handle string) bool {
	at, found := slices.BinarySearch(r.ActiveUsers, handle)
	if found {
		return false
	}
	r.ActiveUsers = slices.Insert(r.ActiveUsers, at, handle)
	return true
}

// MarshalRoomSession encodes the room for storage.
func MarshalRoomSession(room *RoomSession) ([]byte, error) {
	if room == nil {
		return nil, trace.BadParameter("missing parameter room")
	}
	data, err := json.Marshal(room)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return data, nil
}

// UnmarshalRoomSession decodes a stored room.
func UnmarshalRoomSession(data []byte) (*RoomSession, error) {
	if len(data) == 0 {
		return nil, trace.BadParameter("missing room data")
	}
	var room RoomSession
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, trace.BadParameter("invalid room record: %v", err)
	}
	if room.Owner == "" || room.Repo == "" {
		return nil, trace.BadParameter("room record misses repository coordinates")
	}
	if room.ActiveUsers == nil {
		room.ActiveUsers = []string{}
	}
	slices.Sort(room.ActiveUsers)
	return &room, nil
}
