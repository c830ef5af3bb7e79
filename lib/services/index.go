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
	"slices"

	"github.com/gravitational/trace"
)

// StatusIndex is the ordered set of handles currently in one status.
// The directory keeps one index per status and moves handles between
// them on transitions, membership stays disjoint across the three.
type StatusIndex struct {
	// Status is the status this index serves.
	Status Status `json:"status"`
	// Handles is the sorted member set.
	Handles []string `json:"handles"`
}

// NewStatusIndex returns an empty index for the status.
func NewStatusIndex(status Status) *StatusIndex {
	return &StatusIndex{Status: status, Handles: []string{}}
}

// Add inserts the handle keeping the set sorted, reporting whether the
// index changed.
func (i *StatusIndex) Add(handle string) bool {
	at, found := slices.BinarySearch(i.Handles, handle)
	if found {
		return false
	}
	i.Handles = slices.Insert(i.Handles, at, handle)
	return true
}

// Remove deletes the handle, reporting whether the index changed.
func (i *StatusIndex) Remove(handle string) bool {
	at, found := slices.BinarySearch(i.Handles, handle)
	if !found {
		return false
	}
	i.Handles = slices.Delete(i.Handles, at, at+1)
	return true
}

// Contains reports index membership.
func (i *StatusIndex) Contains(handle string) bool {
	_, found := slices.BinarySearch(i.Handles, handle)
	return found
}

// Len returns the member count.
func (i *StatusIndex) Len() int {
	return len(i.Handles)
}

// MarshalStatusIndex encodes the index for storage.
func MarshalStatusIndex(index *StatusIndex) ([]byte, error) {
	if index == nil {
		return nil, trace.BadParameter("missing parameter index")
	}
	data, err := json.Marshal(index)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return data, nil
}

// UnmarshalStatusIndex decodes a stored index.
func UnmarshalStatusIndex(data []byte) (*StatusIndex, error) {
	if len(data) == 0 {
		return nil, trace.BadParameter("missing index data")
	}
	var index StatusIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, trace.BadParameter("invalid status index: %v", err)
	}
	if err := index.Status.Check(); err != nil {
		return nil, trace.Wrap(err)
	}
	if index.Handles == nil {
		index.Handles = []string{}
	}
	slices.Sort(index.Handles)
	return &index, nil
}
