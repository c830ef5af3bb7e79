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

// Package gitscape holds constants shared across the identity and access
// subsystem of Gitscape.
package gitscape

import "strings"

// Version is the semantic version of this build. Overridden at release
// time via -ldflags.
var Version = "0.9.0-dev"

// Gitref is the git reference this binary was built from, set via -ldflags.
var Gitref string

const (
	// WebAPIVersion is the current web API version.
	WebAPIVersion = "v1"
)

const (
	// ComponentKey is the logging attribute key holding the name of the
	// component emitting the record.
	ComponentKey = "component"

	// ComponentGitscape is the component name of the daemon itself.
	ComponentGitscape = "gitscape"

	// ComponentAuth is the CLI authorization flow server.
	ComponentAuth = "auth"

	// ComponentDirectory is the user directory service.
	ComponentDirectory = "directory"

	// ComponentRooms is the repository room presence tracker.
	ComponentRooms = "rooms"

	// ComponentBackend is the storage backend layer.
	ComponentBackend = "backend"

	// ComponentWeb is the web API adapter.
	ComponentWeb = "web"

	// ComponentGSH is the end user login client.
	ComponentGSH = "gsh"

	// ComponentGSCtl is the operator admin tool.
	ComponentGSCtl = "gsctl"
)

const (
	// BrowserNone disables opening the system browser during login.
	BrowserNone = "none"

	// OpenBrowserLinux is the command used to open a web browser on Linux.
	OpenBrowserLinux = "xdg-open"

	// OpenBrowserDarwin is the command used to open a web browser on macOS.
	OpenBrowserDarwin = "open"

	// OpenBrowserWindows is the command used to open a web browser on Windows.
	OpenBrowserWindows = "rundll32.exe"
)

// Component generates a colon-joined component name for logging,
// e.g. Component("web", "sessions") returns "web:sessions".
func Component(components ...string) string {
	return strings.Join(components, ":")
}
