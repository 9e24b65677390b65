// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the Prometheus counters a sync run updates,
// optionally served over HTTP for the duration of one invocation.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of counters/histograms a Driver updates across
// every repository pair in a cycle.
type Metrics struct {
	registry *prometheus.Registry

	BytesDownloaded prometheus.Counter
	FilesFetched    prometheus.Counter
	FilesSkipped    prometheus.Counter
	FilesDeleted    prometheus.Counter
	PairFailures    prometheus.Counter
	CycleDuration   prometheus.Histogram
}

// New registers a fresh set of counters against their own registry
// (rather than the global default) so repeated test construction
// doesn't panic on duplicate registration.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		BytesDownloaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "reposync_bytes_downloaded_total",
			Help: "Total bytes downloaded from remote mirrors.",
		}),
		FilesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "reposync_files_fetched_total",
			Help: "Total files actually downloaded (not skipped).",
		}),
		FilesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "reposync_files_skipped_total",
			Help: "Total files accepted as already up to date.",
		}),
		FilesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "reposync_files_deleted_total",
			Help: "Total orphaned files removed by the Cleaner.",
		}),
		PairFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "reposync_pair_failures_total",
			Help: "Total (src, dst) pairs that failed and were skipped.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reposync_cycle_duration_seconds",
			Help:    "Duration of one repository pair's sync cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Serve starts an HTTP server exposing the registry on addr and
// shuts it down when ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
