// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

const repomdFixture = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <revision>42</revision>
  <data type="primary">
    <location href="repodata/primary.xml.gz"/>
  </data>
</repomd>
`

func TestRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repodata/repomd.xml", r.URL.Path)
		_, _ = w.Write([]byte(repomdFixture))
	}))
	t.Cleanup(srv.Close)

	m, err := Remote(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, m.Index.Revision)
	require.EqualValues(t, 42, *m.Index.Revision)
}

func TestRemoteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := Remote(context.Background(), srv.Client(), srv.URL)
	require.ErrorIs(t, err, reposyncerr.ErrNetwork)
}

func TestLocalMissingReturnsNilNil(t *testing.T) {
	m, err := Local(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestLocalPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "repodata"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repodata", "repomd.xml"), []byte(repomdFixture), 0o644))

	m, err := Local(dir)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.EqualValues(t, 42, *m.Index.Revision)
}

func TestSameVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "repodata"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repodata", "repomd.xml"), []byte(repomdFixture), 0o644))

	a, err := Local(dir)
	require.NoError(t, err)
	b, err := Local(dir)
	require.NoError(t, err)

	require.True(t, a.SameVersion(b))

	var nilMirror *Mirror
	require.False(t, nilMirror.SameVersion(b))
	require.False(t, a.SameVersion(nil))
}
