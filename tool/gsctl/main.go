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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/config"
	"github.com/gitscape/gitscape/lib/defaults"
	"github.com/gitscape/gitscape/lib/service"
	"github.com/gitscape/gitscape/lib/services"
	"github.com/gitscape/gitscape/lib/services/local"
	"github.com/gitscape/gitscape/lib/utils"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// GlobalHelpString is the message printed by `gsctl help`.
const GlobalHelpString = "Admin tool for the Gitscape user directory. Operates directly on the storage backend the configuration file names."

// GlobalCLIFlags keeps the CLI flags that apply to all gsctl commands.
type GlobalCLIFlags struct {
	// Debug enables verbose logging.
	Debug bool
	// ConfigFile is the path to the gitscape configuration file.
	ConfigFile string
}

// CLICommand is implemented by every command family. gsctl loops over
// all of them, letting each attach its subcommands to the parser and
// later claim the selected command.
type CLICommand interface {
	// Initialize registers the command's flags and subcommands with
	// the parser. The config is shared by all commands and is fully
	// populated before TryRun is called.
	Initialize(app *kingpin.Application, cfg *service.Config)

	// TryRun executes the command if the selected command string
	// belongs to it. Returns (false, nil) when the command is not
	// one of its own.
	TryRun(ctx context.Context, cmd string, svc *Services) (match bool, err error)
}

// Services bundles the directory services the commands operate on,
// bound to the same backend the gitscape server would use.
type Services struct {
	services.Identity
	services.Presence

	bk backend.Backend
}

// Close releases the underlying backend.
func (s *Services) Close() error {
	return trace.Wrap(s.bk.Close())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := Run(ctx, os.Args[1:]); err != nil {
		utils.FatalError(err)
	}
}

// Run parses the arguments, connects to the configured backend and
// dispatches to the matching command.
func Run(ctx context.Context, args []string) error {
	// CLI runs stay quiet unless asked otherwise.
	if _, _, err := logutils.Initialize(logutils.Config{Severity: slog.LevelWarn.String()}); err != nil {
		return trace.Wrap(err)
	}

	var ccf GlobalCLIFlags

	cfg := service.MakeDefaultConfig()
	commands := []CLICommand{
		&UserCommand{},
		&RoomCommand{},
		&StatsCommand{},
	}

	app := utils.InitCLIParser("gsctl", GlobalHelpString)
	for i := range commands {
		commands[i].Initialize(app, cfg)
	}

	app.Flag("debug", "Enable verbose logging to stderr.").
		Short('d').
		BoolVar(&ccf.Debug)
	app.Flag("config", fmt.Sprintf("Path to a configuration file [%v].", defaults.ConfigFilePath)).
		Short('c').
		ExistingFileVar(&ccf.ConfigFile)

	versionCmd := app.Command("version", "Print the version of your gsctl binary.")

	app.HelpFlag.Short('h')
	utils.UpdateAppUsageTemplate(app, args)
	selectedCmd, err := app.Parse(args)
	if err != nil {
		app.Usage(args)
		return trace.Wrap(err)
	}

	// The version command needs no backend.
	if selectedCmd == versionCmd.FullCommand() {
		utils.PrintVersion()
		return nil
	}

	if err := applyConfig(&ccf, cfg); err != nil {
		return trace.Wrap(err)
	}

	svc, err := connectToBackend(ctx, cfg)
	if err != nil {
		return trace.Wrap(err)
	}
	defer svc.Close()

	for _, cmd := range commands {
		match, err := cmd.TryRun(ctx, selectedCmd, svc)
		if err != nil {
			return trace.Wrap(err)
		}
		if match {
			return nil
		}
	}
	return trace.BadParameter("unknown command %q", selectedCmd)
}

// applyConfig merges the configuration file and the global flags into
// cfg. Unlike the server, gsctl only needs the storage and logging
// sections, so the github connector is left unvalidated.
func applyConfig(ccf *GlobalCLIFlags, cfg *service.Config) error {
	fileConf, err := config.ReadConfigFile(ccf.ConfigFile)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := config.ApplyFileConfig(fileConf, cfg); err != nil {
		return trace.Wrap(err)
	}
	if ccf.Debug {
		cfg.Debug = true
		if _, _, err := logutils.Initialize(logutils.Config{
			Severity: slog.LevelDebug.String(),
			Format:   cfg.Log.Format,
		}); err != nil {
			return trace.Wrap(err)
		}
		slog.DebugContext(context.Background(), "Debug logging has been enabled")
	}
	return nil
}

// connectToBackend opens the configured backend and wraps it in the
// local directory services.
func connectToBackend(ctx context.Context, cfg *service.Config) (*Services, error) {
	if cfg.Storage.Type == service.StorageMemory {
		fmt.Fprintln(os.Stderr, "WARNING: the memory backend is process local, a running gitscape server will not see changes made here")
	}
	bk, err := service.InitBackend(ctx, cfg, clockwork.NewRealClock())
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &Services{
		Identity: local.NewIdentityService(bk),
		Presence: local.NewPresenceService(bk),
		bk:       bk,
	}, nil
}
