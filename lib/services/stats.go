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
	"time"

	"github.com/gravitational/trace"
)

// Stats holds the aggregate directory counters. They are derived from
// the status index sizes, never counted independently, and recomputed
// after every write that touches an index.
type Stats struct {
	// TotalWaitlisted is the size of the waitlisted index.
	TotalWaitlisted int `json:"total_waitlisted"`
	// TotalApproved is the size of the approved index.
	TotalApproved int `json:"total_approved"`
	// TotalDenied is the size of the denied index.
	TotalDenied int `json:"total_denied"`
	// LastUpdated is when the counters were last recomputed.
	LastUpdated time.Time `json:"last_updated"`
}

// Total returns the directory size across all statuses.
func (s *Stats) Total() int {
	return s.TotalWaitlisted + s.TotalApproved + s.TotalDenied
}

// MarshalStats encodes the counters for storage.
func MarshalStats(stats *Stats) ([]byte, error) {
	if stats == nil {
		return nil, trace.BadParameter("missing parameter stats")
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return data, nil
}

// UnmarshalStats decodes stored counters.
func UnmarshalStats(data []byte) (*Stats, error) {
	if len(data) == 0 {
		return nil, trace.BadParameter("missing stats data")
	}
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, trace.BadParameter("invalid stats record: %v", err)
	}
	return &stats, nil
}
