// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package driver orchestrates one sync cycle: every configured
// repository, expanded across its TagMux tag combinations, synced
// independently with per-pair failure isolation.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.reposync.dev/reposync/internal/pkg/cache"
	"go.reposync.dev/reposync/internal/pkg/cleaner"
	"go.reposync.dev/reposync/internal/pkg/config"
	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/metrics"
	"go.reposync.dev/reposync/internal/pkg/mirror"
	"go.reposync.dev/reposync/internal/pkg/tagmux"
)

// httpTimeout is the total per-request timeout; there is deliberately
// no global cycle timeout.
const httpTimeout = 600 * time.Second

// Run syncs every repository in cfg, each expanded across its tag
// combinations, under mode. A failure on any one (src, dst) pair is
// logged and isolated; Run always returns nil — per-pair errors never
// change the process exit code.
func Run(ctx context.Context, log *slog.Logger, m *metrics.Metrics, cfg *config.Config, mode cache.CheckMode) error {
	client := &http.Client{
		Timeout:   httpTimeout,
		Transport: noGzipTransport(),
	}

	for _, repo := range cfg.Repos {
		names := tagmux.SortedNames(repo.Tags)
		mux := tagmux.New(repo.Src, repo.Dest, repo.Tags, names)

		for {
			src, dst, ok := mux.Next()
			if !ok {
				break
			}
			syncPair(ctx, log, m, client, src, dst, mode)
		}
	}

	return nil
}

func syncPair(ctx context.Context, log *slog.Logger, m *metrics.Metrics, client *http.Client, src, dst string, mode cache.CheckMode) {
	start := time.Now()
	defer func() {
		if m != nil {
			m.CycleDuration.Observe(time.Since(start).Seconds())
		}
	}()

	pairLog := log.With("src", src, "dst", dst)

	remote, err := mirror.Remote(ctx, client, src)
	if err != nil {
		logFailure(pairLog, m, "fetching remote index", err)
		return
	}

	local, err := mirror.Local(dst)
	if err != nil {
		logFailure(pairLog, m, "reading local index", err)
		return
	}

	if local != nil && remote.SameVersion(local) && mode == cache.RemoteSize {
		pairLog.Info("up to date")
		cleanPair(pairLog, m, remote, dst)
		return
	}

	if err := syncCycle(ctx, client, remote, dst, mode, m); err != nil {
		logFailure(pairLog, m, "sync cycle failed", err)
		return
	}

	pairLog.Info("syncing", "revision", revisionOf(remote.Index))
	cleanPair(pairLog, m, remote, dst)
}

func syncCycle(ctx context.Context, client *http.Client, remote *mirror.Mirror, dst string, mode cache.CheckMode, m *metrics.Metrics) error {
	c, err := cache.New(ctx, client, remote, m)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.CloneInto(ctx, dst, mode)
}

// cleanPair re-derives the reference set from the (now-published)
// local metadata and runs the Cleaner. A failure here is logged but
// does not count as a pair failure: the sync itself already
// succeeded, and a stray orphan is cleaned up on the next cycle.
func cleanPair(log *slog.Logger, m *metrics.Metrics, remote *mirror.Mirror, dst string) {
	primaryHref, err := remote.Index.PrimaryPath()
	if err != nil {
		log.Warn("skipping clean: no primary metadata", "err", err)
		return
	}

	primary, err := readPrimary(dst, primaryHref)
	if err != nil {
		log.Warn("skipping clean", "err", err)
		return
	}

	var presto *metaindex.PrestoDeltaList
	if deltaHref, ok := remote.Index.PrestodeltaPath(); ok {
		presto, err = readPrestodelta(dst, deltaHref)
		if err != nil {
			log.Warn("skipping prestodelta in clean", "err", err)
		}
	}

	refs := cleaner.ReferenceSet(remote.Index, primary, presto)
	deleted, err := cleaner.Clean(dst, refs)
	if err != nil {
		log.Warn("clean failed", "err", err)
		return
	}

	if len(deleted) > 0 {
		log.Info("cleaned", "count", len(deleted))
		if m != nil {
			m.FilesDeleted.Add(float64(len(deleted)))
		}
	}
}

func logFailure(log *slog.Logger, m *metrics.Metrics, msg string, err error) {
	log.Warn(msg, "err", err)
	log.Debug(msg, "err", fmt.Sprintf("%+v", err))
	if m != nil {
		m.PairFailures.Inc()
	}
}

func revisionOf(index *metaindex.RepoIndex) int64 {
	if index == nil || index.Revision == nil {
		return 0
	}
	return *index.Revision
}
