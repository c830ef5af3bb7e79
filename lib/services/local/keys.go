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
	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/services"
)

// Every backend key used by the local services is built here and nowhere
// else. The layout:
//
//	users/<handle>      user record
//	indexes/<status>    status index
//	stats               aggregate counters
//	rooms/<owner>/<repo> room session
const (
	usersPrefix   = "users"
	indexesPrefix = "indexes"
	statsPrefix   = "stats"
	roomsPrefix   = "rooms"
)

func userKey(handle string) backend.Key {
	return backend.NewKey(usersPrefix, handle)
}

func allUsersPrefix() backend.Key {
	return backend.ExactKey(usersPrefix)
}

func statusIndexKey(status services.Status) backend.Key {
	return backend.NewKey(indexesPrefix, string(status))
}

func statsKey() backend.Key {
	return backend.NewKey(statsPrefix)
}

func roomKey(owner, name string) backend.Key {
	return backend.NewKey(roomsPrefix, owner, name)
}

func allRoomsPrefix() backend.Key {
	return backend.ExactKey(roomsPrefix)
}
