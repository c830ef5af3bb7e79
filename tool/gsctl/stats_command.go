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
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape/lib/asciitable"
	"github.com/gitscape/gitscape/lib/service"
)

// StatsCommand implements the `gsctl stats` command.
type StatsCommand struct {
	config *service.Config

	stats *kingpin.CmdClause
}

// Initialize allows StatsCommand to plug itself into the CLI parser.
func (s *StatsCommand) Initialize(app *kingpin.Application, cfg *service.Config) {
	s.config = cfg

	s.stats = app.Command("stats", "Show the directory counters.")
}

// TryRun executes the command if the selected command belongs to this
// group.
func (s *StatsCommand) TryRun(ctx context.Context, cmd string, svc *Services) (match bool, err error) {
	switch cmd {
	case s.stats.FullCommand():
		err = s.Show(ctx, svc)

	default:
		return false, nil
	}
	return true, trace.Wrap(err)
}

// Show prints the aggregate directory counters.
func (s *StatsCommand) Show(ctx context.Context, svc *Services) error {
	stats, err := svc.GetStats(ctx)
	if err != nil {
		return trace.Wrap(err)
	}

	table := asciitable.MakeTable([]string{"Status", "Count"})
	table.AddRow([]string{"waitlisted", strconv.Itoa(stats.TotalWaitlisted)})
	table.AddRow([]string{"approved", strconv.Itoa(stats.TotalApproved)})
	table.AddRow([]string{"denied", strconv.Itoa(stats.TotalDenied)})
	table.AddRow([]string{"total", strconv.Itoa(stats.Total())})
	fmt.Print(table.AsBuffer().String())

	if !stats.LastUpdated.IsZero() {
		fmt.Printf("Last updated: %v\n", stats.LastUpdated.UTC().Format(time.RFC822))
	}
	return nil
}
