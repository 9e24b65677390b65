// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go.reposync.dev/reposync/internal/pkg/cache"
	"go.reposync.dev/reposync/internal/pkg/config"
)

const repomdXML = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <revision>3</revision>
  <data type="primary">
    <location href="repodata/primary.xml"/>
  </data>
</repomd>
`

const primaryXML = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <package type="rpm">
    <name>acl</name>
    <version epoch="0" ver="2.3.1" rel="4.el9"/>
    <checksum type="sha256">abc</checksum>
    <location href="Packages/acl-2.3.1-4.el9.x86_64.rpm"/>
    <size package="10"/>
  </package>
</metadata>
`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repodata/repomd.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(repomdXML))
	})
	mux.HandleFunc("/repodata/primary.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(primaryXML))
	})
	mux.HandleFunc("/Packages/acl-2.3.1-4.el9.x86_64.rpm", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("rpm-bytes!"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestRunSyncsFreshTarget(t *testing.T) {
	srv := newFixtureServer(t)
	target := t.TempDir()

	cfg := &config.Config{Repos: []config.RepoConfig{{Src: srv.URL, Dest: target}}}

	err := Run(context.Background(), discardLogger(), nil, cfg, cache.RemoteSize)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(target, "Packages", "acl-2.3.1-4.el9.x86_64.rpm"))
	require.NoError(t, err)
	require.Equal(t, "rpm-bytes!", string(contents))
}

func TestRunIsIdempotentOnSecondPass(t *testing.T) {
	srv := newFixtureServer(t)
	target := t.TempDir()

	cfg := &config.Config{Repos: []config.RepoConfig{{Src: srv.URL, Dest: target}}}

	require.NoError(t, Run(context.Background(), discardLogger(), nil, cfg, cache.RemoteSize))
	require.NoError(t, Run(context.Background(), discardLogger(), nil, cfg, cache.RemoteSize))

	contents, err := os.ReadFile(filepath.Join(target, "Packages", "acl-2.3.1-4.el9.x86_64.rpm"))
	require.NoError(t, err)
	require.Equal(t, "rpm-bytes!", string(contents))
}

func TestRunContinuesPastUnreachablePair(t *testing.T) {
	target := t.TempDir()
	cfg := &config.Config{Repos: []config.RepoConfig{{Src: "http://127.0.0.1:1", Dest: target}}}

	err := Run(context.Background(), discardLogger(), nil, cfg, cache.RemoteSize)
	require.NoError(t, err, "per-pair failures must never surface as a Run error")
}

func TestRunExpandsTagCombinations(t *testing.T) {
	srv := newFixtureServer(t)
	root := t.TempDir()

	cfg := &config.Config{Repos: []config.RepoConfig{{
		Src:  srv.URL,
		Dest: filepath.Join(root, "$arch"),
		Tags: map[string][]string{"arch": {"x86_64", "aarch64"}},
	}}}

	require.NoError(t, Run(context.Background(), discardLogger(), nil, cfg, cache.RemoteSize))

	for _, arch := range []string{"x86_64", "aarch64"} {
		_, err := os.Stat(filepath.Join(root, arch, "repodata", "repomd.xml"))
		require.NoError(t, err, "arch %s must have been synced", arch)
	}
}
