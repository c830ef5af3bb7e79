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
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape/lib/config"
	"github.com/gitscape/gitscape/lib/defaults"
	"github.com/gitscape/gitscape/lib/service"
	"github.com/gitscape/gitscape/lib/utils"
)

const appHelp = `Gitscape Server

The Gitscape server hosts the user directory, the CLI login flow and the
repository room presence tracker behind a single web API.

Find out more at https://gitscape.dev/docs`

func main() {
	if err := Run(os.Args[1:]); err != nil {
		utils.FatalError(err)
	}
}

// Run parses the command line and starts the requested command.
func Run(args []string) error {
	var clf config.CommandLineFlags

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := utils.InitCLIParser("gitscape", appHelp)
	app.HelpFlag.Short('h')

	startCmd := app.Command("start", "Starts the Gitscape server.")
	startCmd.Flag("debug", "Enable verbose logging to stderr.").
		Short('d').BoolVar(&clf.Debug)
	startCmd.Flag("config", fmt.Sprintf("Path to a configuration file [%v].", defaults.ConfigFilePath)).
		Short('c').ExistingFileVar(&clf.ConfigFile)
	startCmd.Flag("listen-addr", "Address the web API listens on.").
		StringVar(&clf.ListenAddr)
	startCmd.Flag("diag-addr", "Start diagnostics endpoints on this address.").
		StringVar(&clf.DiagAddr)

	versionCmd := app.Command("version", "Print the version of your gitscape binary.")

	utils.UpdateAppUsageTemplate(app, args)
	command, err := app.Parse(args)
	if err != nil {
		app.Usage(args)
		return trace.Wrap(err)
	}

	switch command {
	case startCmd.FullCommand():
		return trace.Wrap(onStart(ctx, &clf))
	case versionCmd.FullCommand():
		utils.PrintVersion()
	}
	return nil
}

// onStart is the handler of the "start" CLI command.
func onStart(ctx context.Context, clf *config.CommandLineFlags) error {
	cfg := service.MakeDefaultConfig()
	if err := config.Configure(clf, cfg); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(service.Run(ctx, cfg))
}
