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

// Package web implements the Gitscape HTTP API: the CLI login flow
// endpoints with their HTML callback pages, the user directory surface
// and the room presence surface.
package web

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gravitational/roundtrip"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/auth"
	"github.com/gitscape/gitscape/lib/httplib"
	"github.com/gitscape/gitscape/lib/services"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// Handler is the Gitscape web API handler
type Handler struct {
	httprouter.Router
	cfg    Config
	logger *slog.Logger
}

// Config represents web handler configuration parameters
type Config struct {
	// AuthServer drives the CLI login flow.
	AuthServer *auth.Server
	// Identity is the user directory.
	Identity services.Identity
	// Presence is the room presence tracker.
	Presence services.Presence
	// AdminToken guards the administrative surface. When empty the
	// administrative endpoints are disabled.
	AdminToken string
	// Version is reported by the ping endpoint.
	Version string
	// Clock overrides time in tests.
	Clock clockwork.Clock
	// Logger overrides the package logger.
	Logger *slog.Logger
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.AuthServer == nil {
		return trace.BadParameter("missing parameter AuthServer")
	}
	if c.Identity == nil {
		return trace.BadParameter("missing parameter Identity")
	}
	if c.Presence == nil {
		return trace.BadParameter("missing parameter Presence")
	}
	if c.Version == "" {
		c.Version = gitscape.Version
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = logutils.NewPackageLogger(gitscape.ComponentKey, gitscape.ComponentWeb)
	}
	return nil
}

// NewHandler returns a new instance of the web handler
func NewHandler(cfg Config) (*Handler, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	h := &Handler{cfg: cfg, logger: cfg.Logger}

	// ping endpoint is used to check if the server is up and to report
	// the version the client should expect
	h.GET("/webapi/ping", httplib.MakeHandler(h.ping))

	// CLI login flow
	h.POST("/webapi/cli/login/start", httplib.MakeHandler(h.cliLoginStart))
	h.GET("/webapi/cli/login/callback", h.cliLoginCallback)
	h.POST("/webapi/cli/login/token", h.cliLoginToken)

	// Authenticated user surface
	h.GET("/webapi/user", h.WithAuth(h.currentUser))
	h.POST("/webapi/rooms/join", h.WithAuth(h.joinRoom))
	h.GET("/webapi/rooms/:owner/:repo", h.WithAuth(h.getRoom))

	// Administrative surface
	h.GET("/webapi/users", h.WithAdminAuth(h.listUsers))
	h.POST("/webapi/users", h.WithAdminAuth(h.upsertUser))
	h.GET("/webapi/users/:handle", h.WithAdminAuth(h.getUser))
	h.POST("/webapi/users/:handle/approve", h.WithAdminAuth(h.approveUser))
	h.POST("/webapi/users/:handle/deny", h.WithAdminAuth(h.denyUser))
	h.GET("/webapi/stats", h.WithAdminAuth(h.getStats))
	h.GET("/webapi/rooms", h.WithAdminAuth(h.getRooms))

	return h, nil
}

const apiPrefix = "/" + gitscape.WebAPIVersion

// ServeHTTP routes the request. API clients built on roundtrip prefix
// every endpoint with the web API version, so both /webapi/ping and
// /v1/webapi/ping reach the same handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, apiPrefix+"/") {
		http.StripPrefix(apiPrefix, &h.Router).ServeHTTP(w, r)
		return
	}
	h.Router.ServeHTTP(w, r)
}

// AuthedHandlerFunc is a handler called with the directory user the
// request's bearer token resolved to.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, p httprouter.Params, user *services.User) (any, error)

// WithAuth resolves the request's bearer token to a directory user and
// passes it to the handler.
func (h *Handler) WithAuth(fn AuthedHandlerFunc) httprouter.Handle {
	return httplib.MakeHandler(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
		user, err := h.authenticateRequest(r)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		return fn(w, r, p, user)
	})
}

// WithAdminAuth admits the request only when it carries the configured
// admin token.
func (h *Handler) WithAdminAuth(fn httplib.HandlerFunc) httprouter.Handle {
	return httplib.MakeHandler(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
		if h.cfg.AdminToken == "" {
			return nil, trace.AccessDenied("administrative API is disabled")
		}
		creds, err := roundtrip.ParseAuthHeaders(r)
		if err != nil {
			return nil, trace.AccessDenied("need auth")
		}
		if subtle.ConstantTimeCompare([]byte(creds.Password), []byte(h.cfg.AdminToken)) != 1 {
			h.logger.WarnContext(r.Context(), "Request failed: bad admin token", "path", r.URL.Path)
			return nil, trace.AccessDenied("bad admin token")
		}
		return fn(w, r, p)
	})
}

// authenticateRequest resolves the bearer token to a directory user.
func (h *Handler) authenticateRequest(r *http.Request) (*services.User, error) {
	creds, err := roundtrip.ParseAuthHeaders(r)
	if err != nil {
		return nil, trace.AccessDenied("need auth")
	}
	user, err := h.cfg.Identity.GetUserByToken(r.Context(), creds.Password)
	if err != nil {
		// The caller learns nothing about which tokens exist.
		if trace.IsNotFound(err) || trace.IsBadParameter(err) {
			return nil, trace.AccessDenied("need auth")
		}
		return nil, trace.Wrap(err)
	}
	return user, nil
}

type pingResponse struct {
	// ServerVersion is the version of the server
	ServerVersion string `json:"server_version"`
	// AuthType is the authentication provider the server is set up with
	AuthType string `json:"auth_type"`
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	return pingResponse{
		ServerVersion: h.cfg.Version,
		AuthType:      "github",
	}, nil
}

func (h *Handler) cliLoginStart(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	var req auth.StartCLILoginRequest
	if err := httplib.ReadJSON(r, &req); err != nil {
		return nil, trace.Wrap(err)
	}
	resp, err := h.cfg.AuthServer.StartCLILogin(r.Context(), req)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return resp, nil
}

// cliLoginCallback lands the provider redirect. The response is a
// human-facing HTML page, the actual login result travels through the
// session store to the polling CLI.
func (h *Handler) cliLoginCallback(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	httplib.SetNoCacheHeaders(w.Header())

	err := h.cfg.AuthServer.CompleteLogin(r.Context(), r.URL.Query())
	if err == nil {
		h.writePage(w, http.StatusOK, loginSuccessPage())
		return
	}
	if trace.IsNotFound(err) {
		h.writePage(w, http.StatusBadRequest, loginExpiredPage())
		return
	}
	var oerr *trace.OAuth2Error
	if errors.As(err, &oerr) {
		h.writePage(w, http.StatusBadRequest, loginFailurePage(oerr.Message))
		return
	}
	h.logger.ErrorContext(r.Context(), "CLI login callback failed", "error", err)
	h.writePage(w, http.StatusInternalServerError, loginFailurePage("Authorization failed."))
}

// grantError is the OAuth2 style error body of the token endpoint, the
// polling client drives its retry loop off the error code.
type grantError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (h *Handler) cliLoginToken(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	httplib.SetNoCacheHeaders(w.Header())

	var req auth.ExchangeCLITokenRequest
	if err := httplib.ReadJSON(r, &req); err != nil {
		trace.WriteError(w, err)
		return
	}
	resp, err := h.cfg.AuthServer.ExchangeCLIToken(r.Context(), req)
	if err != nil {
		var oerr *trace.OAuth2Error
		if errors.As(err, &oerr) {
			roundtrip.ReplyJSON(w, http.StatusBadRequest, grantError{
				Error:       oerr.Code,
				Description: oerr.Message,
			})
			return
		}
		trace.WriteError(w, err)
		return
	}
	roundtrip.ReplyJSON(w, http.StatusOK, resp)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request, p httprouter.Params, user *services.User) (any, error) {
	return user, nil
}

type joinRoomRequest struct {
	// RepoURL is the repository the user is viewing, in any of the
	// accepted web, SSH or bare owner/repo forms.
	RepoURL string `json:"repo_url"`
}

func (h *Handler) joinRoom(w http.ResponseWriter, r *http.Request, p httprouter.Params, user *services.User) (any, error) {
	var req joinRoomRequest
	if err := httplib.ReadJSON(r, &req); err != nil {
		return nil, trace.Wrap(err)
	}
	room, err := h.cfg.Presence.JoinRoom(r.Context(), req.RepoURL, user.Handle)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return room, nil
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request, p httprouter.Params, user *services.User) (any, error) {
	room, err := h.cfg.Presence.GetRoom(r.Context(), p.ByName("owner"), p.ByName("repo"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return room, nil
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	status := r.URL.Query().Get("status")
	if status == "" {
		return nil, trace.BadParameter("missing query parameter status")
	}
	users, err := h.cfg.Identity.GetUsersByStatus(r.Context(), services.Status(status))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return users, nil
}

func (h *Handler) upsertUser(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	var req services.UpsertUserRequest
	if err := httplib.ReadJSON(r, &req); err != nil {
		return nil, trace.Wrap(err)
	}
	user, err := h.cfg.Identity.UpsertUser(r.Context(), req)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return user, nil
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	user, err := h.cfg.Identity.GetUser(r.Context(), p.ByName("handle"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return user, nil
}

func (h *Handler) approveUser(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	user, err := h.cfg.Identity.ApproveUser(r.Context(), p.ByName("handle"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return user, nil
}

func (h *Handler) denyUser(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	user, err := h.cfg.Identity.DenyUser(r.Context(), p.ByName("handle"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return user, nil
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	stats, err := h.cfg.Identity.GetStats(r.Context())
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return stats, nil
}

func (h *Handler) getRooms(w http.ResponseWriter, r *http.Request, p httprouter.Params) (any, error) {
	rooms, err := h.cfg.Presence.GetRooms(r.Context())
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return rooms, nil
}
