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
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape/lib/asciitable"
	"github.com/gitscape/gitscape/lib/service"
)

// RoomCommand implements the `gsctl rooms` group of commands.
type RoomCommand struct {
	config *service.Config

	roomList *kingpin.CmdClause
}

// Initialize allows RoomCommand to plug itself into the CLI parser.
func (r *RoomCommand) Initialize(app *kingpin.Application, cfg *service.Config) {
	r.config = cfg

	rooms := app.Command("rooms", "Inspect repository rooms.")
	r.roomList = rooms.Command("ls", "List all rooms and their members.")
}

// TryRun executes the command if the selected command belongs to this
// group.
func (r *RoomCommand) TryRun(ctx context.Context, cmd string, svc *Services) (match bool, err error) {
	switch cmd {
	case r.roomList.FullCommand():
		err = r.List(ctx, svc)

	default:
		return false, nil
	}
	return true, trace.Wrap(err)
}

// List prints every room with its member set. The member column is
// truncated to keep the table within the terminal width.
func (r *RoomCommand) List(ctx context.Context, svc *Services) error {
	rooms, err := svc.GetRooms(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	if len(rooms) == 0 {
		fmt.Println("No rooms found.")
		return nil
	}

	var rows [][]string
	for _, room := range rooms {
		rows = append(rows, []string{
			room.Owner + "/" + room.Repo,
			strings.Join(room.ActiveUsers, ", "),
			room.LastActivity.UTC().Format(time.RFC822),
		})
	}
	table := asciitable.MakeTableWithTruncatedColumn(
		[]string{"Room", "Active Users", "Last Activity (UTC)"}, rows, "Active Users")
	fmt.Print(table.AsBuffer().String())
	return nil
}
