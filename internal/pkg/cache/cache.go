// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the two-phase cache-then-publish sync
// protocol: metadata is staged into a scratch directory, payloads are
// downloaded under verification, and only then is the target
// repository's repodata/ atomically replaced.
package cache

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.reposync.dev/reposync/internal/pkg/fetcher"
	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/metrics"
	"go.reposync.dev/reposync/internal/pkg/mirror"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
	"go.reposync.dev/reposync/internal/pkg/workerpool"
)

// CheckMode is the user-configured verification strictness; Cache
// translates it into the appropriate per-item fetcher.Check.
type CheckMode int

const (
	// RemoteSize verifies only freshly downloaded files; an existing
	// file of any size or content is accepted as up to date.
	RemoteSize CheckMode = iota
	// Size additionally re-downloads existing files whose size differs
	// from the declared size.
	Size
	// Hash additionally re-downloads existing files whose checksum
	// differs from the declared checksum.
	Hash
)

// Cache wraps a remote Mirror and a scratch directory that holds its
// staged metadata for the lifetime of one sync cycle.
type Cache struct {
	remote  *mirror.Mirror
	client  *http.Client
	scratch string
	metrics *metrics.Metrics
}

// New stages index.MetaFiles() (Phase A) into a fresh scratch
// directory and returns a Cache ready to publish into a target. m may
// be nil, in which case no metrics are recorded.
func New(ctx context.Context, client *http.Client, remote *mirror.Mirror, m *metrics.Metrics) (*Cache, error) {
	scratch, err := os.MkdirTemp("", "reposync-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w: %w", reposyncerr.ErrFilesystem, err)
	}

	c := &Cache{remote: remote, client: client, scratch: scratch, metrics: m}

	if err := c.stageMetadata(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// Close removes the scratch directory. Safe to call more than once.
func (c *Cache) Close() {
	os.RemoveAll(c.scratch)
}

// stageMetadata is Phase A: download every meta file into the scratch
// directory with no size/hash verification, since sizes aren't known
// before the documents themselves are parsed.
func (c *Cache) stageMetadata(ctx context.Context) error {
	for _, href := range c.remote.Index.MetaFiles() {
		url := c.remoteURL(href)
		if _, err := fetcher.Fetch(ctx, c.client, url, filepath.Join(c.scratch, href), fetcher.NewMetadataCheck()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) remoteURL(href string) string {
	return strings.TrimRight(c.remote.Base, "/") + "/" + href
}

// CloneInto runs Phase B (download payloads) then Phase C (publish)
// against target, under the given CheckMode. Phase D (cleaning) is
// the driver's responsibility, run only after CloneInto succeeds, so
// that a failed clone never touches a target whose metadata it hasn't
// also successfully published.
func (c *Cache) CloneInto(ctx context.Context, target string, mode CheckMode) error {
	items, err := c.workItems()
	if err != nil {
		return err
	}

	if err := c.downloadPayloads(ctx, target, items, mode); err != nil {
		return err
	}

	return c.publish(target)
}

// workItems parses the staged primary (and, if present, prestodelta)
// payloads into the sorted WorkItem set Phase B downloads.
func (c *Cache) workItems() ([]metaindex.WorkItem, error) {
	primaryHref, err := c.remote.Index.PrimaryPath()
	if err != nil {
		return nil, err
	}

	primaryRaw, err := os.ReadFile(filepath.Join(c.scratch, primaryHref))
	if err != nil {
		return nil, fmt.Errorf("reading staged %s: %w: %w", primaryHref, reposyncerr.ErrFilesystem, err)
	}
	primary, err := metaindex.DecodePrimary(primaryRaw)
	if err != nil {
		return nil, err
	}

	items := primary.FilesForSync()

	if deltaHref, ok := c.remote.Index.PrestodeltaPath(); ok {
		deltaRaw, err := os.ReadFile(filepath.Join(c.scratch, deltaHref))
		if err != nil {
			return nil, fmt.Errorf("reading staged %s: %w: %w", deltaHref, reposyncerr.ErrFilesystem, err)
		}
		delta, err := metaindex.DecodePrestodelta(deltaRaw)
		if err != nil {
			return nil, err
		}
		items = append(items, delta.FilesForSync()...)
	}

	return dedupSortedItems(items), nil
}

func dedupSortedItems(items []metaindex.WorkItem) []metaindex.WorkItem {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, item := range items {
		if seen[item.Href] {
			continue
		}
		seen[item.Href] = true
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Href < out[j].Href
	})
	return out
}

// downloadPayloads is Phase B: run the WorkerPool at parallelism 8
// over items, each worker fetching one package/delta file into target
// under the mode-derived Check. A single failed download fails the
// whole pool; the caller aborts before Phase C on any error.
func (c *Cache) downloadPayloads(ctx context.Context, target string, items []metaindex.WorkItem, mode CheckMode) error {
	return workerpool.Run(items, func(item metaindex.WorkItem) error {
		url := c.remoteURL(item.Href)
		check := effectiveCheck(mode, item)
		downloaded, err := fetcher.Fetch(ctx, c.client, url, filepath.Join(target, item.Href), check)
		if err != nil {
			return err
		}
		c.recordFetch(downloaded)
		return nil
	})
}

// recordFetch updates the fetched/skipped/bytes counters for one
// completed Fetch call. A call that returned 0 bytes counts as skipped:
// Fetch returns 0 when it accepted the item as already up to date, and
// also when the downloaded file is empty.
func (c *Cache) recordFetch(downloaded int64) {
	if c.metrics == nil {
		return
	}
	if downloaded == 0 {
		c.metrics.FilesSkipped.Inc()
		return
	}
	c.metrics.FilesFetched.Inc()
	c.metrics.BytesDownloaded.Add(float64(downloaded))
}

func effectiveCheck(mode CheckMode, item metaindex.WorkItem) fetcher.Check {
	switch mode {
	case Size:
		return fetcher.NewSizeCheck(item.Size)
	case Hash:
		return fetcher.NewHashCheck(item.Size, item.Checksum)
	default:
		return fetcher.NewRemoteSizeCheck(item.Size)
	}
}

// publish is Phase C: make target/repodata match scratch/repodata by
// clearing the target directory's regular files (the layout is flat,
// so no recursion) and copying the staged files over. It is not
// journaled — a crash mid-phase is repaired by the next cycle, since
// the remote repomd.xml will still disagree with whatever partial
// state is left behind.
func (c *Cache) publish(target string) error {
	scratchRepodata := filepath.Join(c.scratch, "repodata")
	targetRepodata := filepath.Join(target, "repodata")

	entries, err := os.ReadDir(targetRepodata)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading %s: %w: %w", targetRepodata, reposyncerr.ErrFilesystem, err)
		}
		if err := os.MkdirAll(targetRepodata, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w: %w", targetRepodata, reposyncerr.ErrFilesystem, err)
		}
	} else {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(targetRepodata, entry.Name())); err != nil {
				return fmt.Errorf("clearing %s: %w: %w", targetRepodata, reposyncerr.ErrFilesystem, err)
			}
		}
	}

	staged, err := os.ReadDir(scratchRepodata)
	if err != nil {
		return fmt.Errorf("reading staged %s: %w: %w", scratchRepodata, reposyncerr.ErrFilesystem, err)
	}

	for _, entry := range staged {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(scratchRepodata, entry.Name()), filepath.Join(targetRepodata, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w: %w", src, reposyncerr.ErrFilesystem, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w: %w", dst, reposyncerr.ErrFilesystem, err)
	}
	return nil
}
