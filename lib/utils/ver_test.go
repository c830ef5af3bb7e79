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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		clientVersion string
		serverVersion string
		wantErr       bool
	}{
		{
			name:          "equal versions",
			clientVersion: "1.2.3",
			serverVersion: "1.2.3",
		},
		{
			name:          "client is older",
			clientVersion: "1.1.0",
			serverVersion: "1.2.3",
		},
		{
			name:          "patch versions are ignored",
			clientVersion: "1.2.9",
			serverVersion: "1.2.3",
		},
		{
			name:          "client is a minor version ahead",
			clientVersion: "1.3.0",
			serverVersion: "1.2.3",
			wantErr:       true,
		},
		{
			name:          "major versions differ",
			clientVersion: "2.0.0",
			serverVersion: "1.2.3",
			wantErr:       true,
		},
		{
			name:          "client version is garbage",
			clientVersion: "banana",
			serverVersion: "1.2.3",
			wantErr:       true,
		},
		{
			name:          "server version is garbage",
			clientVersion: "1.2.3",
			serverVersion: "banana",
			wantErr:       true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVersions(tt.clientVersion, tt.serverVersion)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
