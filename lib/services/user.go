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

package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gravitational/trace"
)

// Status is the lifecycle state of a directory user.
type Status string

const (
	// StatusWaitlisted is the state of every newly created user.
	StatusWaitlisted Status = "waitlisted"
	// StatusApproved grants access to the product.
	StatusApproved Status = "approved"
	// StatusDenied refuses access. Denied records are kept, never
	// deleted, so a denied applicant stays visible to operators.
	StatusDenied Status = "denied"
)

// AllStatuses enumerates the valid statuses in index order.
var AllStatuses = []Status{StatusWaitlisted, StatusApproved, StatusDenied}

// Check validates the status value.
func (s Status) Check() error {
	switch s {
	case StatusWaitlisted, StatusApproved, StatusDenied:
		return nil
	}
	return trace.BadParameter("unsupported user status %q", string(s))
}

// NormalizeHandle converts a handle into its case insensitive directory
// key form.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// User is an applicant record in the directory. A user is created on the
// first directory write for a handle and never physically deleted. The
// struct is closed on purpose: records are parsed with encoding/json
// into exactly these fields, so extraneous properties smuggled into a
// stored blob can never surface on a returned value.
type User struct {
	// ID is generated once at creation and never changes afterwards.
	ID string `json:"id"`
	// Handle is the normalized, case insensitive directory key.
	Handle string `json:"handle"`
	// Email is the contact address, optional.
	Email string `json:"email,omitempty"`
	// Status is the lifecycle state, see the Status constants.
	Status Status `json:"status"`
	// CredentialToken is the opaque provider token recorded at CLI
	// login, optional. Compared verbatim by GetUserByToken.
	CredentialToken string `json:"credential_token,omitempty"`
	// Metadata holds opaque key value pairs attached by callers.
	Metadata map[string]string `json:"metadata,omitempty"`
	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed by every mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckAndSetDefaults validates the user and normalizes its handle.
func (u *User) CheckAndSetDefaults() error {
	u.Handle = NormalizeHandle(u.Handle)
	if u.Handle == "" {
		return trace.BadParameter("missing parameter Handle")
	}
	if u.Status == "" {
		u.Status = StatusWaitlisted
	}
	if err := u.Status.Check(); err != nil {
		return trace.Wrap(err)
	}
	return nil
}

// MarshalUser encodes the user for storage.
func MarshalUser(user *User) ([]byte, error) {
	if user == nil {
		return nil, trace.BadParameter("missing parameter user")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return data, nil
}

// UnmarshalUser decodes a stored user record, rebuilding it field by
// field into the closed User shape.
func UnmarshalUser(data []byte) (*User, error) {
	if len(data) == 0 {
		return nil, trace.BadParameter("missing user data")
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, trace.BadParameter("invalid user record: %v", err)
	}
	if err := user.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &user, nil
}
