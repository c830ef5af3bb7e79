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

// Package client implements the client half of the Gitscape CLI login
// ceremony and a typed client for the web API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gravitational/roundtrip"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/auth"
	"github.com/gitscape/gitscape/lib/httplib"
	"github.com/gitscape/gitscape/lib/services"
)

// WebClient is a client to the Gitscape web API.
type WebClient struct {
	*roundtrip.Client
}

// NewWebClient returns a new web API client for the given server
// address. Endpoints that require a logged in user need the client
// constructed with roundtrip.BearerAuth.
func NewWebClient(serverAddr string, opts ...roundtrip.ClientParam) (*WebClient, error) {
	u, err := ParseServerAddr(serverAddr)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	opts = append(opts, roundtrip.SanitizerEnabled(true))
	clt, err := roundtrip.NewClient(u.String(), gitscape.WebAPIVersion, opts...)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &WebClient{clt}, nil
}

// ParseServerAddr normalizes a Gitscape server address into a URL.
// Bare host:port addresses default to https.
func ParseServerAddr(serverAddr string) (*url.URL, error) {
	if serverAddr == "" {
		return nil, trace.BadParameter("missing server address")
	}
	if !strings.Contains(serverAddr, "://") {
		serverAddr = "https://" + serverAddr
	}
	u, err := url.Parse(serverAddr)
	if err != nil {
		return nil, trace.BadParameter("%q is not a valid server address: %v", serverAddr, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, trace.BadParameter("unsupported scheme %q in server address %q", u.Scheme, serverAddr)
	}
	if u.Host == "" {
		return nil, trace.BadParameter("%q is not a valid server address", serverAddr)
	}
	// roundtrip joins endpoint components onto the address verbatim.
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// PostJSON issues a POST request and converts HTTP errors into trace
// errors.
func (w *WebClient) PostJSON(ctx context.Context, endpoint string, val any) (*roundtrip.Response, error) {
	return httplib.ConvertResponse(w.Client.PostJSON(ctx, endpoint, val))
}

// Get issues a GET request and converts HTTP errors into trace errors.
func (w *WebClient) Get(ctx context.Context, endpoint string, params url.Values) (*roundtrip.Response, error) {
	return httplib.ConvertResponse(w.Client.Get(ctx, endpoint, params))
}

// PingResponse is the response of the ping endpoint.
type PingResponse struct {
	// ServerVersion is the version of the answering server.
	ServerVersion string `json:"server_version"`
	// AuthType names the upstream identity provider.
	AuthType string `json:"auth_type"`
}

// Ping probes the server and returns its version and authentication
// settings.
func (w *WebClient) Ping(ctx context.Context) (*PingResponse, error) {
	re, err := w.Get(ctx, w.Endpoint("webapi", "ping"), url.Values{})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var pr PingResponse
	if err := json.Unmarshal(re.Bytes(), &pr); err != nil {
		return nil, trace.Wrap(err)
	}
	return &pr, nil
}

// StartCLILogin registers a new CLI login session with the server and
// returns the provider URL the user has to visit.
func (w *WebClient) StartCLILogin(ctx context.Context, req auth.StartCLILoginRequest) (*auth.StartCLILoginResponse, error) {
	re, err := w.PostJSON(ctx, w.Endpoint("webapi", "cli", "login", "start"), req)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var resp auth.StartCLILoginResponse
	if err := json.Unmarshal(re.Bytes(), &resp); err != nil {
		return nil, trace.Wrap(err)
	}
	return &resp, nil
}

// ExchangeCLIToken attempts to redeem a pending CLI login session for
// an access token. Until the user finishes authorizing in the browser
// the endpoint answers with an authorization_pending grant error,
// surfaced here as *GrantError.
func (w *WebClient) ExchangeCLIToken(ctx context.Context, req auth.ExchangeCLITokenRequest) (*auth.ExchangeCLITokenResponse, error) {
	re, err := w.Client.PostJSON(ctx, w.Endpoint("webapi", "cli", "login", "token"), req)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if re.Code() == http.StatusBadRequest {
		var ge GrantError
		if err := json.Unmarshal(re.Bytes(), &ge); err == nil && ge.Code != "" {
			return nil, trace.Wrap(&ge)
		}
	}
	if re.Code() != http.StatusOK {
		return nil, trace.ReadError(re.Code(), re.Bytes())
	}
	var resp auth.ExchangeCLITokenResponse
	if err := json.Unmarshal(re.Bytes(), &resp); err != nil {
		return nil, trace.Wrap(err)
	}
	return &resp, nil
}

// CurrentUser returns the directory user the client's bearer token
// resolves to.
func (w *WebClient) CurrentUser(ctx context.Context) (*services.User, error) {
	re, err := w.Get(ctx, w.Endpoint("webapi", "user"), url.Values{})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var user services.User
	if err := json.Unmarshal(re.Bytes(), &user); err != nil {
		return nil, trace.Wrap(err)
	}
	return &user, nil
}

// JoinRoom adds the logged in user to the presence room of the given
// repository.
func (w *WebClient) JoinRoom(ctx context.Context, repoURL string) (*services.RoomSession, error) {
	re, err := w.PostJSON(ctx, w.Endpoint("webapi", "rooms", "join"), joinRoomRequest{RepoURL: repoURL})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var room services.RoomSession
	if err := json.Unmarshal(re.Bytes(), &room); err != nil {
		return nil, trace.Wrap(err)
	}
	return &room, nil
}

type joinRoomRequest struct {
	RepoURL string `json:"repo_url"`
}

// GrantError is an OAuth style error returned by the token endpoint.
type GrantError struct {
	// Code is the machine readable error code.
	Code string `json:"error"`
	// Description is the human readable description, optional.
	Description string `json:"error_description,omitempty"`
}

// Error returns the description when the server sent one, the code
// otherwise.
func (e *GrantError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// IsAuthorizationPending returns true when err is the token endpoint
// telling the client that the user has not finished the browser step
// yet.
func IsAuthorizationPending(err error) bool {
	var ge *GrantError
	return errors.As(err, &ge) && ge.Code == auth.ErrorAuthorizationPending
}
