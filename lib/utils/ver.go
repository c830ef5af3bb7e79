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

package utils

import (
	"github.com/coreos/go-semver/semver"
	"github.com/gravitational/trace"
)

// CheckVersions compares client and server versions and makes sure they are
// compatible. Clients may be older than the server they talk to, but never
// ahead of it, and major versions have to match.
func CheckVersions(clientVersion, serverVersion string) error {
	clientSemver, err := semver.NewVersion(clientVersion)
	if err != nil {
		return trace.Wrap(err,
			"unsupported version format, need semver format: %q, e.g 1.0.0", clientVersion)
	}

	serverSemver, err := semver.NewVersion(serverVersion)
	if err != nil {
		return trace.Wrap(err,
			"unsupported version format, need semver format: %q, e.g 1.0.0", serverVersion)
	}

	switch {
	case serverSemver.Major != clientSemver.Major:
		return trace.BadParameter("client version %q is not compatible with server version %q, please make client and server versions use the same major versions", clientVersion, serverVersion)
	case serverSemver.Minor < clientSemver.Minor:
		return trace.BadParameter("client version %q is newer than server version %q, please downgrade client or upgrade server", clientVersion, serverVersion)
	}

	return nil
}
