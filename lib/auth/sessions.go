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

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape/lib/defaults"
)

// Session is a pending CLI authorization handshake keyed by the state
// token the client minted at the start of the flow. The session holds
// the PKCE challenge until the provider redirects back with a code, and
// the code until the client exchanges it. A session is single use:
// the exchange that consumes it also deletes it.
type Session struct {
	// State is the opaque token the client generated to correlate the
	// browser leg with the polling leg of the flow.
	State string `json:"state"`
	// CodeChallenge is the base64url encoded SHA-256 digest of the
	// client's code verifier.
	CodeChallenge string `json:"code_challenge"`
	// Code is the authorization code delivered by the provider
	// redirect, empty until the callback lands.
	Code string `json:"code"`
	// CreatedAt is when the handshake started, expiry is measured
	// from it.
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore holds pending CLI authorization sessions. Entries are
// dropped once consumed or once they outlive the store's TTL, an
// expired entry is indistinguishable from one that never existed.
type SessionStore interface {
	// UpsertSession stores the session under its state token.
	UpsertSession(ctx context.Context, sess Session) error
	// GetSession returns the session with the given state token, or
	// trace.NotFound if it is absent or expired.
	GetSession(ctx context.Context, state string) (*Session, error)
	// DeleteSession removes the session with the given state token.
	// Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, state string) error
	// Close releases the store's background resources.
	Close() error
}

// MemorySessionStoreConfig holds parameters for the in-memory session
// store.
type MemorySessionStoreConfig struct {
	// TTL is how long a session stays valid after creation.
	TTL time.Duration
	// SweepInterval is how often the background sweep evicts expired
	// sessions.
	SweepInterval time.Duration
	// Clock overrides time in tests.
	Clock clockwork.Clock
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *MemorySessionStoreConfig) CheckAndSetDefaults() error {
	if c.TTL < 0 || c.SweepInterval < 0 {
		return trace.BadParameter("TTL and SweepInterval must not be negative")
	}
	if c.TTL == 0 {
		c.TTL = defaults.CLIAuthSessionTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = defaults.CLIAuthSweepInterval
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// MemorySessionStore keeps sessions in a mutex-guarded map inside the
// process. Expired entries are evicted lazily on read and by a
// background sweep, so a session that outlived its TTL is never
// observable even between sweeps.
type MemorySessionStore struct {
	cfg      MemorySessionStoreConfig
	mu       sync.Mutex
	sessions map[string]Session
	stopC    chan struct{}
}

// NewMemorySessionStore returns a running in-memory session store. The
// caller owns the store and must Close it to stop the sweep.
func NewMemorySessionStore(cfg MemorySessionStoreConfig) (*MemorySessionStore, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	s := &MemorySessionStore{
		cfg:      cfg,
		sessions: make(map[string]Session),
		stopC:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s, nil
}

// UpsertSession stores the session under its state token.
func (s *MemorySessionStore) UpsertSession(ctx context.Context, sess Session) error {
	if sess.State == "" {
		return trace.BadParameter("missing parameter State")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.State] = sess
	return nil
}

// GetSession returns the session with the given state token, or
// trace.NotFound if it is absent or expired.
func (s *MemorySessionStore) GetSession(ctx context.Context, state string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[state]
	if !ok {
		return nil, trace.NotFound("session is not found or has expired")
	}
	if s.expired(sess) {
		delete(s.sessions, state)
		sessionsExpired.Inc()
		return nil, trace.NotFound("session is not found or has expired")
	}
	return &sess, nil
}

// DeleteSession removes the session with the given state token.
func (s *MemorySessionStore) DeleteSession(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, state)
	return nil
}

// Close stops the background sweep.
func (s *MemorySessionStore) Close() error {
	close(s.stopC)
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) expired(sess Session) bool {
	return s.cfg.Clock.Now().Sub(sess.CreatedAt) >= s.cfg.TTL
}

func (s *MemorySessionStore) sweepLoop() {
	ticker := s.cfg.Clock.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopC:
			return
		case <-ticker.Chan():
			s.sweep()
		}
	}
}

func (s *MemorySessionStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for state, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, state)
			sessionsExpired.Inc()
		}
	}
}
