// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror loads a repository's repomd.xml index from either an
// HTTP(S) base URL or a local file:// tree, and compares two loads for
// "same version".
package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// Mirror is a (RepoIndex, base URL) pair, owned for the lifetime of
// one sync cycle.
type Mirror struct {
	Index *metaindex.RepoIndex
	Base  string
}

// Remote fetches and parses repomd.xml from an http(s):// base URL.
func Remote(ctx context.Context, client *http.Client, base string) (*Mirror, error) {
	url := strings.TrimRight(base, "/") + "/" + metaindex.RepomdPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w: %w", url, reposyncerr.ErrNetwork, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w: %w", url, reposyncerr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s: %w", url, resp.Status, reposyncerr.ErrNetwork)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", url, reposyncerr.ErrNetwork, err)
	}

	index, err := metaindex.DecodeRepomd(raw)
	if err != nil {
		return nil, err
	}

	return &Mirror{Index: index, Base: base}, nil
}

// Local loads repomd.xml from a file:// (or bare filesystem path) base.
// A missing target repository is not an error: it returns (nil, nil)
// so the driver can treat "never synced before" as a normal state.
func Local(base string) (*Mirror, error) {
	root := strings.TrimPrefix(base, "file://")
	path := filepath.Join(root, metaindex.RepomdPath)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
	}

	index, err := metaindex.DecodeRepomd(raw)
	if err != nil {
		return nil, err
	}

	return &Mirror{Index: index, Base: base}, nil
}

// SameVersion reports whether m and other carry equal RepoIndex
// revisions. A nil receiver or argument is never equal to anything.
func (m *Mirror) SameVersion(other *Mirror) bool {
	if m == nil || other == nil {
		return false
	}
	return m.Index.Equal(other.Index)
}
