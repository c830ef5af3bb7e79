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

package client

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/gitscape/gitscape"
)

// PromptBrowserLogin opens the authorization URL in the user's browser
// and prints it so the user can follow the link manually.
func PromptBrowserLogin(stderr io.Writer, browser, authURL string) {
	// If a command was found to launch the browser, create and start it.
	if err := OpenURLInBrowser(browser, authURL); err != nil {
		fmt.Fprintf(stderr, "Failed to open a browser window for login: %v\n", err)
	}

	// Print the URL to the screen, in case the command that launches the browser did not run.
	// If browser is set to the special string gitscape.BrowserNone, no browser will be opened.
	if browser == gitscape.BrowserNone {
		fmt.Fprintf(stderr, "Use the following URL to authenticate:\n %v\n", authURL)
	} else {
		fmt.Fprintf(stderr, "If browser window does not open automatically, open it by ")
		fmt.Fprintf(stderr, "clicking on the link:\n %v\n", authURL)
	}
}

// OpenURLInBrowser opens a URL in a web browser.
func OpenURLInBrowser(browser string, URL string) error {
	var execCmd *exec.Cmd
	if browser != gitscape.BrowserNone {
		switch runtime.GOOS {
		// macOS.
		case "darwin":
			path, err := exec.LookPath(gitscape.OpenBrowserDarwin)
			if err == nil {
				execCmd = exec.Command(path, URL)
			}
		// Windows.
		case "windows":
			path, err := exec.LookPath(gitscape.OpenBrowserWindows)
			if err == nil {
				execCmd = exec.Command(path, "url.dll,FileProtocolHandler", URL)
			}
		// Linux or any other operating system.
		default:
			path, err := exec.LookPath(gitscape.OpenBrowserLinux)
			if err == nil {
				execCmd = exec.Command(path, URL)
			}
		}
	}
	if execCmd != nil {
		if err := execCmd.Start(); err != nil {
			return err
		}
	}

	return nil
}
