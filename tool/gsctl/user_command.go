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
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape/lib/asciitable"
	"github.com/gitscape/gitscape/lib/service"
	"github.com/gitscape/gitscape/lib/services"
	"github.com/gitscape/gitscape/lib/utils/prompt"
)

// UserCommand implements the `gsctl users` group of commands.
type UserCommand struct {
	config *service.Config

	handle string
	email  string
	status string
	force  bool

	userList    *kingpin.CmdClause
	userAdd     *kingpin.CmdClause
	userApprove *kingpin.CmdClause
	userDeny    *kingpin.CmdClause
}

// Initialize allows UserCommand to plug itself into the CLI parser.
func (u *UserCommand) Initialize(app *kingpin.Application, cfg *service.Config) {
	u.config = cfg

	users := app.Command("users", "Manage the user directory.")
	u.userList = users.Command("ls", "List the users in the directory.")
	u.userList.Flag("status", "Only show users with this status.").StringVar(&u.status)
	u.userAdd = users.Command("add", "Add a user to the waitlist.")
	u.userAdd.Arg("handle", "GitHub handle of the user.").Required().StringVar(&u.handle)
	u.userAdd.Flag("email", "Contact address of the user.").StringVar(&u.email)
	u.userApprove = users.Command("approve", "Approve a waitlisted user.")
	u.userApprove.Arg("handle", "GitHub handle of the user.").Required().StringVar(&u.handle)
	u.userDeny = users.Command("deny", "Deny a user access.")
	u.userDeny.Arg("handle", "GitHub handle of the user.").Required().StringVar(&u.handle)
	u.userDeny.Flag("force", "Deny without asking for confirmation.").Short('f').BoolVar(&u.force)
}

// TryRun takes the selected command (like "users ls") and executes it
// if it belongs to this group.
func (u *UserCommand) TryRun(ctx context.Context, cmd string, svc *Services) (match bool, err error) {
	switch cmd {
	case u.userList.FullCommand():
		err = u.List(ctx, svc)
	case u.userAdd.FullCommand():
		err = u.Add(ctx, svc)
	case u.userApprove.FullCommand():
		err = u.Approve(ctx, svc)
	case u.userDeny.FullCommand():
		err = u.Deny(ctx, svc)

	default:
		return false, nil
	}
	return true, trace.Wrap(err)
}

// List prints the directory, optionally filtered by status.
func (u *UserCommand) List(ctx context.Context, svc *Services) error {
	var statuses []services.Status
	if u.status != "" {
		status := services.Status(u.status)
		if err := status.Check(); err != nil {
			return trace.Wrap(err)
		}
		statuses = []services.Status{status}
	} else {
		statuses = services.AllStatuses
	}

	var users []*services.User
	for _, status := range statuses {
		matched, err := svc.GetUsersByStatus(ctx, status)
		if err != nil {
			return trace.Wrap(err)
		}
		users = append(users, matched...)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	table := asciitable.MakeTable([]string{"Handle", "Status", "Email", "Created (UTC)"})
	for _, user := range users {
		table.AddRow([]string{
			user.Handle,
			string(user.Status),
			user.Email,
			user.CreatedAt.UTC().Format(time.RFC822),
		})
	}
	// Rows arrive grouped by status, present the directory in handle order.
	table.SortRowsBy([]int{0}, true)
	fmt.Print(table.AsBuffer().String())
	return nil
}

// Add puts a user on the waitlist, or refreshes an existing record.
func (u *UserCommand) Add(ctx context.Context, svc *Services) error {
	user, err := svc.UpsertUser(ctx, services.UpsertUserRequest{
		Handle: u.handle,
		Email:  u.email,
	})
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Printf("User %v has been added, status %q\n", user.Handle, user.Status)
	return nil
}

// Approve moves a user to the approved status.
func (u *UserCommand) Approve(ctx context.Context, svc *Services) error {
	user, err := svc.ApproveUser(ctx, u.handle)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Printf("User %v has been approved\n", user.Handle)
	return nil
}

// Deny moves a user to the denied status, asking for confirmation
// unless --force is set.
func (u *UserCommand) Deny(ctx context.Context, svc *Services) error {
	if !u.force {
		question := fmt.Sprintf("Deny user %q access", u.handle)
		confirmed, err := prompt.Confirmation(os.Stdout, os.Stdin, question)
		if err != nil {
			return trace.Wrap(err)
		}
		if !confirmed {
			fmt.Println("Canceled.")
			return nil
		}
	}
	user, err := svc.DenyUser(ctx, u.handle)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Printf("User %v has been denied\n", user.Handle)
	return nil
}
