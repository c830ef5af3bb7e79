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

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gravitational/roundtrip"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/client"
	"github.com/gitscape/gitscape/lib/utils"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

const appHelp = `Gitscape CLI client

gsh logs you into a Gitscape server with your GitHub identity and keeps
the issued credential under ~/.gsh for later commands.

Find out more at https://gitscape.dev/docs`

const (
	// homeEnvVar overrides the directory gsh keeps its profile in.
	homeEnvVar = "GSH_HOME"
	// serverEnvVar allows the server address to be specified via env var.
	serverEnvVar = "GITSCAPE_SERVER"
)

type cliConfig struct {
	// Debug enables verbose logging to stderr.
	Debug bool
	// ServerAddr is the Gitscape server to log into.
	ServerAddr string
	// Browser controls how the login URL is opened.
	Browser string
	// Insecure allows talking to servers with invalid TLS certificates.
	Insecure bool
	// RepoURL is the repository argument of `gsh join`.
	RepoURL string
	// ProfileDir overrides ~/.gsh, taken from GSH_HOME.
	ProfileDir string
}

func main() {
	if err := Run(os.Args[1:]); err != nil {
		utils.FatalError(err)
	}
}

// Run parses the arguments and executes the selected command.
func Run(args []string) error {
	var ccf cliConfig
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ccf.ProfileDir = os.Getenv(homeEnvVar)

	app := utils.InitCLIParser("gsh", appHelp)
	app.Flag("debug", "Verbose logging to stderr.").
		Short('d').BoolVar(&ccf.Debug)
	app.Flag("insecure", "Do not verify the server certificate. For testing only.").
		BoolVar(&ccf.Insecure)
	app.HelpFlag.Short('h')

	versionCmd := app.Command("version", "Print the version of your gsh binary.")

	loginCmd := app.Command("login", "Log in to a Gitscape server with your GitHub identity.")
	loginCmd.Flag("server", "Address of the Gitscape server.").
		Envar(serverEnvVar).StringVar(&ccf.ServerAddr)
	loginCmd.Flag("browser", fmt.Sprintf("Browser used to complete the login. Set to %q to only print the URL.", gitscape.BrowserNone)).
		StringVar(&ccf.Browser)

	statusCmd := app.Command("status", "Show the logged in user.")

	joinCmd := app.Command("join", "Join the room of a repository.")
	joinCmd.Arg("repo", "Repository URL, e.g. https://github.com/gitscape/gitscape.").
		Required().StringVar(&ccf.RepoURL)

	logoutCmd := app.Command("logout", "Delete the stored credential.")

	utils.UpdateAppUsageTemplate(app, args)
	command, err := app.Parse(args)
	if err != nil {
		app.Usage(args)
		return trace.Wrap(err)
	}

	severity := slog.LevelWarn
	if ccf.Debug {
		severity = slog.LevelDebug
	}
	if _, _, err := logutils.Initialize(logutils.Config{Severity: severity.String()}); err != nil {
		return trace.Wrap(err)
	}

	switch command {
	case loginCmd.FullCommand():
		err = onLogin(ctx, &ccf)
	case statusCmd.FullCommand():
		err = onStatus(ctx, &ccf)
	case joinCmd.FullCommand():
		err = onJoin(ctx, &ccf)
	case logoutCmd.FullCommand():
		err = onLogout(&ccf)
	case versionCmd.FullCommand():
		utils.PrintVersion()
	default:
		// This should only happen when a switch case above is missing.
		err = trace.BadParameter("command %q not configured", command)
	}
	return trace.Wrap(err)
}

// onLogin runs the login ceremony and stores the issued credential.
func onLogin(ctx context.Context, ccf *cliConfig) error {
	profileDir := client.FullProfilePath(ccf.ProfileDir)

	serverAddr := ccf.ServerAddr
	if serverAddr == "" {
		// Fall back to the server of the stored profile, if any.
		if profile, err := client.ProfileFromDir(profileDir); err == nil {
			serverAddr = profile.ServerAddr
		}
	}
	if serverAddr == "" {
		return trace.BadParameter("no server address, pass --server or set %v", serverEnvVar)
	}

	resp, err := client.Login(ctx, client.LoginConfig{
		ServerAddr: serverAddr,
		Browser:    ccf.Browser,
		Insecure:   ccf.Insecure,
	})
	if err != nil {
		return trace.Wrap(err)
	}

	profile := client.Profile{
		ServerAddr:  serverAddr,
		Handle:      resp.User.Handle,
		Email:       resp.User.Email,
		AccessToken: resp.AccessToken,
	}
	if err := profile.SaveToDir(profileDir); err != nil {
		return trace.Wrap(err)
	}

	printProfile(&profile, string(resp.User.Status))
	return nil
}

// onStatus shows the stored profile after validating the credential
// against the server.
func onStatus(ctx context.Context, ccf *cliConfig) error {
	profile, clt, err := profileClient(ccf)
	if err != nil {
		return trace.Wrap(err)
	}
	user, err := clt.CurrentUser(ctx)
	if err != nil {
		if trace.IsAccessDenied(err) {
			return trace.AccessDenied("stored credential was rejected by %v, run `gsh login` again", profile.ServerAddr)
		}
		return trace.Wrap(err)
	}
	printProfile(profile, string(user.Status))
	return nil
}

// onJoin adds the logged in user to the room of the given repository.
func onJoin(ctx context.Context, ccf *cliConfig) error {
	_, clt, err := profileClient(ccf)
	if err != nil {
		return trace.Wrap(err)
	}
	room, err := clt.JoinRoom(ctx, ccf.RepoURL)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Printf("Joined the room of %v/%v.\n", room.Owner, room.Repo)
	fmt.Printf("Active users: %v\n", utils.EscapeControl(strings.Join(room.ActiveUsers, ", ")))
	return nil
}

// onLogout deletes the stored credential.
func onLogout(ccf *cliConfig) error {
	if err := client.RemoveProfile(client.FullProfilePath(ccf.ProfileDir)); err != nil {
		return trace.Wrap(err)
	}
	fmt.Println("Logged out.")
	return nil
}

// profileClient loads the stored profile and returns a web client
// authenticated with its credential.
func profileClient(ccf *cliConfig) (*client.Profile, *client.WebClient, error) {
	profile, err := client.ProfileFromDir(client.FullProfilePath(ccf.ProfileDir))
	if err != nil {
		if trace.IsNotFound(err) {
			return nil, nil, trace.NotFound("not logged in, run `gsh login` first")
		}
		return nil, nil, trace.Wrap(err)
	}

	params := []roundtrip.ClientParam{roundtrip.BearerAuth(profile.AccessToken)}
	if ccf.Insecure {
		fmt.Fprintf(os.Stderr, "WARNING: you are using an insecure connection to Gitscape server %v\n", profile.ServerAddr)
		params = append(params, roundtrip.HTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}))
	}
	clt, err := client.NewWebClient(profile.ServerAddr, params...)
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}
	return profile, clt, nil
}

func printProfile(p *client.Profile, status string) {
	fmt.Printf("> Profile URL:  %v\n", p.ServerAddr)
	fmt.Printf("  Logged in as: %v\n", utils.EscapeControl(p.Handle))
	if p.Email != "" {
		fmt.Printf("  Email:        %v\n", utils.EscapeControl(p.Email))
	}
	fmt.Printf("  Status:       %v\n", status)
}
