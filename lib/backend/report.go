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

package backend

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// ReporterConfig configures the reporter wrapper.
type ReporterConfig struct {
	// Backend is the backend to wrap.
	Backend Backend
	// TrackTopRequests turns on per-key-prefix request counters.
	TrackTopRequests bool
}

// CheckAndSetDefaults checks and sets defaults.
func (r *ReporterConfig) CheckAndSetDefaults() error {
	if r.Backend == nil {
		return trace.BadParameter("missing parameter Backend")
	}
	return nil
}

// Reporter wraps a Backend implementation and reports statistics about
// the backend operations.
type Reporter struct {
	ReporterConfig
}

// NewReporter returns a new Reporter.
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Reporter{ReporterConfig: cfg}, nil
}

// Get returns a single item or not found error. A not found result does
// not count as a failed read.
func (s *Reporter) Get(ctx context.Context, key Key) (*Item, error) {
	start := s.Clock().Now()
	item, err := s.Backend.Get(ctx, key)
	readLatencies.Observe(time.Since(start).Seconds())
	readRequests.Inc()
	if err != nil && !trace.IsNotFound(err) {
		readRequestsFailed.Inc()
	}
	s.trackRequest(key)
	return item, err
}

// Put puts value into backend (creates if it does not exist, updates it
// otherwise).
func (s *Reporter) Put(ctx context.Context, i Item) error {
	start := s.Clock().Now()
	err := s.Backend.Put(ctx, i)
	writeLatencies.Observe(time.Since(start).Seconds())
	writeRequests.Inc()
	if err != nil {
		writeRequestsFailed.Inc()
	}
	s.trackRequest(i.Key)
	return err
}

// List returns keys under the prefix.
func (s *Reporter) List(ctx context.Context, prefix Key) ([]Key, error) {
	start := s.Clock().Now()
	keys, err := s.Backend.List(ctx, prefix)
	listLatencies.Observe(time.Since(start).Seconds())
	listRequests.Inc()
	if err != nil {
		listRequestsFailed.Inc()
	}
	s.trackRequest(prefix)
	return keys, err
}

// Close releases the resources taken up by this backend.
func (s *Reporter) Close() error {
	return s.Backend.Close()
}

// Clock returns clock used by this backend.
func (s *Reporter) Clock() clockwork.Clock {
	return s.Backend.Clock()
}

// trackRequest tracks top requests by key prefix.
func (s *Reporter) trackRequest(key Key) {
	if !s.TrackTopRequests || key == "" {
		return
	}
	// take just the first two parts, otherwise too many distinct requests
	// can end up in the map
	parts := strings.SplitN(key.String(), string(Separator), 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	counter, err := requests.GetMetricWithLabelValues(strings.Join(parts, string(Separator)))
	if err != nil {
		slog.Warn("Failed to get counter", "error", err)
		return
	}
	counter.Inc()
}

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests",
			Help: "Number of requests to the backend by key prefix",
		},
		[]string{"req"},
	)
	writeRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_write_requests_total",
			Help: "Number of write requests to the backend",
		},
	)
	writeRequestsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_write_requests_failed_total",
			Help: "Number of failed write requests to the backend",
		},
	)
	readRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_read_requests_total",
			Help: "Number of read requests to the backend",
		},
	)
	readRequestsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_read_requests_failed_total",
			Help: "Number of failed read requests to the backend",
		},
	)
	listRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_list_requests_total",
			Help: "Number of list requests to the backend",
		},
	)
	listRequestsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_list_requests_failed_total",
			Help: "Number of failed list requests to the backend",
		},
	)
	writeLatencies = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "backend_write_seconds",
			Help: "Latency for backend write operations",
			// lowest bucket start of upper bound 0.001 sec (1 ms) with factor 2
			// highest bucket start of 0.001 sec * 2^15 == 32.768 sec
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)
	readLatencies = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "backend_read_seconds",
			Help: "Latency for backend read operations",
			// lowest bucket start of upper bound 0.001 sec (1 ms) with factor 2
			// highest bucket start of 0.001 sec * 2^15 == 32.768 sec
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)
	listLatencies = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "backend_list_seconds",
			Help: "Latency for backend list operations",
			// lowest bucket start of upper bound 0.001 sec (1 ms) with factor 2
			// highest bucket start of 0.001 sec * 2^15 == 32.768 sec
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)
)

func init() {
	// Metrics have to be registered to be exposed:
	prometheus.MustRegister(requests)
	prometheus.MustRegister(writeRequests)
	prometheus.MustRegister(writeRequestsFailed)
	prometheus.MustRegister(readRequests)
	prometheus.MustRegister(readRequestsFailed)
	prometheus.MustRegister(listRequests)
	prometheus.MustRegister(listRequestsFailed)
	prometheus.MustRegister(writeLatencies)
	prometheus.MustRegister(readLatencies)
	prometheus.MustRegister(listLatencies)
}
