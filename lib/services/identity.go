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

// Package services defines the entity types of the gitscape identity
// subsystem and the interfaces of the services that manage them:
// * identity service maintaining the user directory
// * presence service tracking who is active in a repository room
package services

import (
	"context"

	"github.com/gravitational/trace"
)

// UpsertUserRequest carries the caller supplied fields of a directory
// upsert. Optional fields left empty keep whatever the record already
// holds, there is no way to clear a field through this call.
type UpsertUserRequest struct {
	// Handle is the directory key, normalized before use.
	Handle string `json:"handle"`
	// Email, when set, replaces the stored email.
	Email string `json:"email,omitempty"`
	// CredentialToken, when set, replaces the stored credential token.
	CredentialToken string `json:"credential_token,omitempty"`
	// Metadata, when set, replaces the stored metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Check validates the request.
func (r *UpsertUserRequest) Check() error {
	if NormalizeHandle(r.Handle) == "" {
		return trace.BadParameter("missing parameter Handle")
	}
	return nil
}

// Identity manages the user directory: applicant records, the per status
// indexes derived from them and the aggregate counters.
type Identity interface {
	// UpsertUser creates the user on first write, waitlisted, or
	// refreshes the stored record preserving ID and CreatedAt.
	UpsertUser(ctx context.Context, req UpsertUserRequest) (*User, error)

	// GetUser returns a user by handle, trace.NotFound when absent.
	GetUser(ctx context.Context, handle string) (*User, error)

	// GetUserByToken returns the first user whose credential token
	// matches. There is no token index, the directory is scanned, which
	// is acceptable at the intended directory size.
	GetUserByToken(ctx context.Context, token string) (*User, error)

	// ApproveUser moves the user to the approved status, maintaining
	// indexes and stats. Approving an approved user changes nothing.
	ApproveUser(ctx context.Context, handle string) (*User, error)

	// DenyUser moves the user to the denied status, maintaining indexes
	// and stats. Denying a denied user changes nothing.
	DenyUser(ctx context.Context, handle string) (*User, error)

	// GetUsersByStatus returns the users listed in the status index.
	GetUsersByStatus(ctx context.Context, status Status) ([]*User, error)

	// GetStats returns the aggregate counters, zero values when the
	// directory has never recorded a transition.
	GetStats(ctx context.Context) (*Stats, error)
}
