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
	"net/url"
	"strings"

	"github.com/gravitational/trace"
)

// Repo are the normalized coordinates of a repository, the key of its
// room session.
type Repo struct {
	// Owner is the lowercased repository owner.
	Owner string `json:"owner"`
	// Name is the lowercased repository name, without a .git suffix.
	Name string `json:"repo"`
}

// Path returns the owner/name form.
func (r Repo) Path() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL extracts repository coordinates from one of the three
// accepted spellings:
//
//	https://host/owner/repo[.git]
//	git@host:owner/repo[.git]
//	owner/repo
//
// A trailing .git is stripped. Anything else fails: embedded
// credentials, query strings, extra path segments, schemes other than
// the two recognized ones.
func ParseRepoURL(raw string) (*Repo, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, trace.BadParameter("missing repository url")
	}

	switch {
	case strings.HasPrefix(trimmed, "git@"):
		return parseSCPRepoURL(trimmed)
	case strings.Contains(trimmed, "://"):
		return parseWebRepoURL(trimmed)
	default:
		return parseBareRepoPath(trimmed)
	}
}

func parseWebRepoURL(raw string) (*Repo, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, invalidRepoURL(raw)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return nil, invalidRepoURL(raw)
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" || u.Host == "" {
		return nil, invalidRepoURL(raw)
	}
	return splitOwnerRepo(strings.TrimPrefix(u.Path, "/"), raw)
}

func parseSCPRepoURL(raw string) (*Repo, error) {
	host, path, ok := strings.Cut(strings.TrimPrefix(raw, "git@"), ":")
	if !ok || host == "" || strings.ContainsAny(host, "/@") {
		return nil, invalidRepoURL(raw)
	}
	return splitOwnerRepo(path, raw)
}

func parseBareRepoPath(raw string) (*Repo, error) {
	if strings.ContainsAny(raw, "@:?#") {
		return nil, invalidRepoURL(raw)
	}
	return splitOwnerRepo(raw, raw)
}

func splitOwnerRepo(path, raw string) (*Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSuffix(path, "/"), "/")
	if !ok {
		return nil, invalidRepoURL(raw)
	}
	name = strings.TrimSuffix(name, ".git")
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, invalidRepoURL(raw)
	}
	if strings.ContainsAny(owner, " \t") || strings.ContainsAny(name, " \t") {
		return nil, invalidRepoURL(raw)
	}
	return &Repo{
		Owner: strings.ToLower(owner),
		Name:  strings.ToLower(name),
	}, nil
}

func invalidRepoURL(raw string) error {
	return trace.BadParameter("invalid repository url %q", raw)
}
