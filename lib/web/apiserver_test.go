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

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/gitscape/gitscape/lib/auth"
	"github.com/gitscape/gitscape/lib/backend/memory"
	"github.com/gitscape/gitscape/lib/services"
	"github.com/gitscape/gitscape/lib/services/local"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

const adminToken = "admin-secret"

// fakeWebProvider substitutes the upstream OAuth provider.
type fakeWebProvider struct {
	accessToken string
	profile     auth.Profile
}

func (f *fakeWebProvider) AuthorizeURL(state string) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (f *fakeWebProvider) Exchange(ctx context.Context, code string) (string, error) {
	return f.accessToken, nil
}

func (f *fakeWebProvider) Profile(ctx context.Context, accessToken string) (*auth.Profile, error) {
	profile := f.profile
	return &profile, nil
}

type webPack struct {
	srv      *httptest.Server
	identity services.Identity
	presence services.Presence
	clock    clockwork.FakeClock
}

func newWebPack(t *testing.T) *webPack {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 12, 10, 0, 0, 0, time.UTC))
	mem, err := memory.New(memory.Config{Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	identity := local.NewIdentityService(mem)
	presence := local.NewPresenceService(mem)

	authServer, err := auth.NewServer(auth.ServerConfig{
		Identity: identity,
		Provider: &fakeWebProvider{
			accessToken: "gho_secret",
			profile:     auth.Profile{Login: "alice", Email: "alice@example.com"},
		},
		Clock:  clock,
		Logger: logutils.DiscardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { authServer.Close() })

	handler, err := NewHandler(Config{
		AuthServer: authServer,
		Identity:   identity,
		Presence:   presence,
		AdminToken: adminToken,
		Clock:      clock,
		Logger:     logutils.DiscardLogger(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &webPack{srv: srv, identity: identity, presence: presence, clock: clock}
}

// do sends a request with an optional bearer token and JSON body and
// returns the status code and response body.
func (p *webPack) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, p.srv.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestPing(t *testing.T) {
	p := newWebPack(t)

	code, body := p.do(t, http.MethodGet, "/webapi/ping", "", nil)
	require.Equal(t, http.StatusOK, code)

	var ping pingResponse
	require.NoError(t, json.Unmarshal(body, &ping))
	require.NotEmpty(t, ping.ServerVersion)
	require.Equal(t, "github", ping.AuthType)
}

func TestCLILoginOverHTTP(t *testing.T) {
	p := newWebPack(t)

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := auth.ComputeCodeChallenge(verifier)

	code, body := p.do(t, http.MethodPost, "/webapi/cli/login/start", "", auth.StartCLILoginRequest{
		CodeChallenge: challenge,
		State:         "state-1",
	})
	require.Equal(t, http.StatusOK, code)

	var start auth.StartCLILoginResponse
	require.NoError(t, json.Unmarshal(body, &start))
	require.Equal(t, "https://provider.example.com/authorize?state=state-1", start.AuthURL)
	require.Equal(t, 300, start.ExpiresIn)

	// Poll before the browser leg has landed.
	code, body = p.do(t, http.MethodPost, "/webapi/cli/login/token", "", auth.ExchangeCLITokenRequest{
		State:        "state-1",
		CodeVerifier: verifier,
	})
	require.Equal(t, http.StatusBadRequest, code)
	var pending grantError
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Equal(t, auth.ErrorAuthorizationPending, pending.Error)

	// Browser leg.
	code, body = p.do(t, http.MethodGet, "/webapi/cli/login/callback?code=abc&state=state-1", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body), "You have logged into Gitscape!")

	// Wrong verifier.
	code, body = p.do(t, http.MethodPost, "/webapi/cli/login/token", "", auth.ExchangeCLITokenRequest{
		State:        "state-1",
		CodeVerifier: "wrong-verifier-wrong-verifier-wrong-verifie",
	})
	require.Equal(t, http.StatusBadRequest, code)
	var denied grantError
	require.NoError(t, json.Unmarshal(body, &denied))
	require.Equal(t, auth.ErrorInvalidGrant, denied.Error)

	// Exchange.
	code, body = p.do(t, http.MethodPost, "/webapi/cli/login/token", "", auth.ExchangeCLITokenRequest{
		State:        "state-1",
		CodeVerifier: verifier,
	})
	require.Equal(t, http.StatusOK, code)
	var exchange auth.ExchangeCLITokenResponse
	require.NoError(t, json.Unmarshal(body, &exchange))
	require.Equal(t, "gho_secret", exchange.AccessToken)
	require.Equal(t, "alice", exchange.User.Handle)

	// The session is single use.
	code, _ = p.do(t, http.MethodPost, "/webapi/cli/login/token", "", auth.ExchangeCLITokenRequest{
		State:        "state-1",
		CodeVerifier: verifier,
	})
	require.Equal(t, http.StatusNotFound, code)
}

func TestCLILoginCallbackPages(t *testing.T) {
	p := newWebPack(t)

	// Unknown state renders the expired page.
	code, body := p.do(t, http.MethodGet, "/webapi/cli/login/callback?code=abc&state=ghost", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, string(body), "This login session has expired")

	// Provider errors surface their description, escaped.
	code, body = p.do(t, http.MethodGet,
		"/webapi/cli/login/callback?error=access_denied&error_description=%3Cscript%3Eboom%3C%2Fscript%3E", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, string(body), "An error occurred during authentication")
	require.Contains(t, string(body), "&lt;script&gt;boom&lt;/script&gt;")
	require.NotContains(t, string(body), "<script>boom</script>")
}

func TestBearerAuth(t *testing.T) {
	p := newWebPack(t)
	ctx := context.Background()

	_, err := p.identity.UpsertUser(ctx, services.UpsertUserRequest{
		Handle:          "alice",
		CredentialToken: "gho_alice",
	})
	require.NoError(t, err)

	code, _ := p.do(t, http.MethodGet, "/webapi/user", "", nil)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = p.do(t, http.MethodGet, "/webapi/user", "gho_unknown", nil)
	require.Equal(t, http.StatusForbidden, code)

	code, body := p.do(t, http.MethodGet, "/webapi/user", "gho_alice", nil)
	require.Equal(t, http.StatusOK, code)
	var user services.User
	require.NoError(t, json.Unmarshal(body, &user))
	require.Equal(t, "alice", user.Handle)
}

func TestAdminSurface(t *testing.T) {
	p := newWebPack(t)

	// No credentials, then user credentials, then the admin token.
	code, _ := p.do(t, http.MethodGet, "/webapi/stats", "", nil)
	require.Equal(t, http.StatusForbidden, code)
	code, _ = p.do(t, http.MethodGet, "/webapi/stats", "not-the-admin-token", nil)
	require.Equal(t, http.StatusForbidden, code)

	code, body := p.do(t, http.MethodPost, "/webapi/users", adminToken, services.UpsertUserRequest{
		Handle: "alice",
		Email:  "alice@example.com",
	})
	require.Equal(t, http.StatusOK, code)
	var created services.User
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, services.StatusWaitlisted, created.Status)

	code, body = p.do(t, http.MethodPost, "/webapi/users/alice/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var approved services.User
	require.NoError(t, json.Unmarshal(body, &approved))
	require.Equal(t, services.StatusApproved, approved.Status)

	code, body = p.do(t, http.MethodGet, "/webapi/users?status=approved", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var users []services.User
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 1)
	require.Equal(t, "alice", users[0].Handle)

	code, body = p.do(t, http.MethodGet, "/webapi/users/alice", adminToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = p.do(t, http.MethodGet, "/webapi/users/ghost", adminToken, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = p.do(t, http.MethodGet, "/webapi/users?status=bogus", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = p.do(t, http.MethodGet, "/webapi/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var stats services.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	require.Equal(t, 1, stats.TotalApproved)

	code, body = p.do(t, http.MethodPost, "/webapi/users/alice/deny", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var denied services.User
	require.NoError(t, json.Unmarshal(body, &denied))
	require.Equal(t, services.StatusDenied, denied.Status)
}

func TestAdminSurfaceDisabled(t *testing.T) {
	p := newWebPack(t)

	// Rebuild the handler without an admin token.
	authServer, err := auth.NewServer(auth.ServerConfig{
		Identity: p.identity,
		Provider: &fakeWebProvider{},
		Clock:    p.clock,
		Logger:   logutils.DiscardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { authServer.Close() })

	handler, err := NewHandler(Config{
		AuthServer: authServer,
		Identity:   p.identity,
		Presence:   p.presence,
		Clock:      p.clock,
		Logger:     logutils.DiscardLogger(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/webapi/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRoomsOverHTTP(t *testing.T) {
	p := newWebPack(t)
	ctx := context.Background()

	_, err := p.identity.UpsertUser(ctx, services.UpsertUserRequest{
		Handle:          "alice",
		CredentialToken: "gho_alice",
	})
	require.NoError(t, err)

	code, _ := p.do(t, http.MethodPost, "/webapi/rooms/join", "", joinRoomRequest{RepoURL: "gitscape/demo"})
	require.Equal(t, http.StatusForbidden, code)

	code, body := p.do(t, http.MethodPost, "/webapi/rooms/join", "gho_alice", joinRoomRequest{
		RepoURL: "https://github.com/Gitscape/Demo",
	})
	require.Equal(t, http.StatusOK, code)
	var room services.RoomSession
	require.NoError(t, json.Unmarshal(body, &room))
	require.Equal(t, "gitscape", room.Owner)
	require.Equal(t, "demo", room.Repo)
	require.Equal(t, []string{"alice"}, room.ActiveUsers)

	code, _ = p.do(t, http.MethodPost, "/webapi/rooms/join", "gho_alice", joinRoomRequest{
		RepoURL: "ftp://github.com/gitscape/demo",
	})
	require.Equal(t, http.StatusBadRequest, code)

	code, body = p.do(t, http.MethodGet, "/webapi/rooms/gitscape/demo", "gho_alice", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &room))
	require.Equal(t, []string{"alice"}, room.ActiveUsers)

	code, _ = p.do(t, http.MethodGet, "/webapi/rooms/gitscape/ghost", "gho_alice", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, body = p.do(t, http.MethodGet, "/webapi/rooms", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var rooms []services.RoomSession
	require.NoError(t, json.Unmarshal(body, &rooms))
	require.Len(t, rooms, 1)
}
