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

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/gitscape/gitscape"
	"github.com/gitscape/gitscape/lib/auth"
	"github.com/gitscape/gitscape/lib/backend"
	"github.com/gitscape/gitscape/lib/backend/memory"
	"github.com/gitscape/gitscape/lib/backend/s3"
	"github.com/gitscape/gitscape/lib/defaults"
	"github.com/gitscape/gitscape/lib/services/local"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
	"github.com/gitscape/gitscape/lib/web"
)

// Server is the assembled gitscape daemon: storage, directory and
// presence services, the CLI auth server and the HTTP listeners.
type Server struct {
	cfg     *Config
	logger  *slog.Logger
	console io.Writer

	backend    backend.Backend
	authServer *auth.Server
	handler    *web.Handler

	mu           sync.Mutex
	group        *errgroup.Group
	webListener  net.Listener
	diagListener net.Listener
}

// NewServer wires a daemon from its configuration. The server does not
// listen until Start is called.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, trace.Wrap(err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logutils.NewPackageLogger(gitscape.ComponentKey, gitscape.ComponentGitscape)
	}
	console := cfg.Console
	if console == nil {
		console = io.Discard
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	bk, err := InitBackend(ctx, cfg, clock)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	identity := local.NewIdentityService(bk)
	presence := local.NewPresenceService(bk)

	provider, err := auth.NewGithubProvider(auth.GithubProviderConfig{
		ClientID:     cfg.Auth.Github.ClientID,
		ClientSecret: cfg.Auth.Github.ClientSecret,
		RedirectURL:  cfg.Auth.Github.RedirectURL,
		Scopes:       cfg.Auth.Github.Scopes,
	})
	if err != nil {
		return nil, trace.NewAggregate(err, bk.Close())
	}

	authServer, err := auth.NewServer(auth.ServerConfig{
		Identity:   identity,
		Provider:   provider,
		SessionTTL: cfg.Auth.SessionTTL,
		Clock:      clock,
	})
	if err != nil {
		return nil, trace.NewAggregate(err, bk.Close())
	}

	handler, err := web.NewHandler(web.Config{
		AuthServer: authServer,
		Identity:   identity,
		Presence:   presence,
		AdminToken: cfg.Web.AdminToken,
		Clock:      clock,
	})
	if err != nil {
		return nil, trace.NewAggregate(err, authServer.Close(), bk.Close())
	}

	return &Server{
		cfg:        cfg,
		logger:     logger,
		console:    console,
		backend:    bk,
		authServer: authServer,
		handler:    handler,
	}, nil
}

// InitBackend opens the storage the configuration names and wraps it
// in the metrics reporter. The daemon and gsctl share this path so both
// see the same key layout.
func InitBackend(ctx context.Context, cfg *Config, clock clockwork.Clock) (backend.Backend, error) {
	var bk backend.Backend
	var err error
	switch cfg.Storage.Type {
	case StorageMemory:
		bk, err = memory.New(memory.Config{Clock: clock})
	case StorageS3:
		bk, err = s3.New(ctx, s3.Config{
			Bucket:   cfg.Storage.Bucket,
			Prefix:   cfg.Storage.Prefix,
			Region:   cfg.Storage.Region,
			Endpoint: cfg.Storage.Endpoint,
			Clock:    clock,
		})
	default:
		return nil, trace.BadParameter("unsupported storage type %q", cfg.Storage.Type)
	}
	if err != nil {
		return nil, trace.Wrap(err)
	}
	reporter, err := backend.NewReporter(backend.ReporterConfig{
		Backend:          bk,
		TrackTopRequests: true,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return reporter, nil
}

// Start binds the listeners and launches the serving goroutines. The
// goroutines run until ctx is canceled or one of them fails, after
// which the remaining listeners shut down gracefully.
func (s *Server) Start(ctx context.Context) error {
	webListener, err := net.Listen("tcp", s.cfg.Web.ListenAddr)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	webServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: defaults.ReadHeadersTimeout,
	}

	var diagListener net.Listener
	var diagServer *http.Server
	if s.cfg.Diag.Enabled {
		diagListener, err = net.Listen("tcp", s.cfg.Diag.ListenAddr)
		if err != nil {
			return trace.NewAggregate(trace.ConvertSystemError(err), webListener.Close())
		}
		diagServer = &http.Server{
			Handler:           s.newDiagHandler(),
			ReadHeaderTimeout: defaults.ReadHeadersTimeout,
		}
	}

	fmt.Fprintf(s.console, "Gitscape %v is starting on %v\n", gitscape.Version, webListener.Addr())

	group, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.group = group
	s.webListener = webListener
	s.diagListener = diagListener
	s.mu.Unlock()

	group.Go(func() error {
		s.logger.InfoContext(ctx, "Web API is starting", "listen_addr", webListener.Addr().String())
		if err := webServer.Serve(webListener); !errors.Is(err, http.ErrServerClosed) {
			return trace.Wrap(err)
		}
		return nil
	})

	if diagServer != nil {
		group.Go(func() error {
			s.logger.InfoContext(ctx, "Diagnostics are starting", "listen_addr", diagListener.Addr().String())
			if err := diagServer.Serve(diagListener); !errors.Is(err, http.ErrServerClosed) {
				return trace.Wrap(err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaults.ShutdownTimeout)
		defer cancel()
		s.logger.InfoContext(shutdownCtx, "Shutting down")
		errs := []error{webServer.Shutdown(shutdownCtx)}
		if diagServer != nil {
			errs = append(errs, diagServer.Shutdown(shutdownCtx))
		}
		return trace.NewAggregate(errs...)
	})

	return nil
}

// Wait blocks until the serving goroutines exit and releases the
// remaining resources.
func (s *Server) Wait() error {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group == nil {
		return trace.BadParameter("server is not started")
	}
	err := group.Wait()
	return trace.NewAggregate(err, s.close())
}

func (s *Server) close() error {
	return trace.NewAggregate(s.authServer.Close(), s.backend.Close())
}

// WebAddr returns the address the web listener is bound to, nil before
// Start.
func (s *Server) WebAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.webListener == nil {
		return nil
	}
	return s.webListener.Addr()
}

// DiagAddr returns the address the diagnostics listener is bound to,
// nil before Start or when diagnostics are disabled.
func (s *Server) DiagAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagListener == nil {
		return nil
	}
	return s.diagListener.Addr()
}

// newDiagHandler serves prometheus metrics and the health probe. The
// pprof endpoints are only exposed in debug mode.
func (s *Server) newDiagHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if s.cfg.Debug {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Run wires a daemon from cfg and serves until ctx is canceled.
func Run(ctx context.Context, cfg *Config) error {
	srv, err := NewServer(ctx, cfg)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := srv.Start(ctx); err != nil {
		return trace.NewAggregate(err, srv.close())
	}
	return trace.Wrap(srv.Wait())
}
