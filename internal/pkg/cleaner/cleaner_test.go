// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package cleaner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanRemovesUnreferencedFilesOnly(t *testing.T) {
	target := t.TempDir()

	write := func(rel, contents string) {
		path := filepath.Join(target, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	write("repodata/repomd.xml", "a")
	write("repodata/primary.xml.gz", "b")
	write("Packages/a/acl-2.3.1.rpm", "c")
	write("Packages/b/orphan-9.9.rpm", "d")

	refs := map[string]bool{
		"repodata/repomd.xml":           true,
		"repodata/primary.xml.gz":       true,
		"Packages/a/acl-2.3.1.rpm":      true,
	}

	deleted, err := Clean(target, refs)
	require.NoError(t, err)
	require.Equal(t, []string{"Packages/b/orphan-9.9.rpm"}, deleted)

	_, err = os.Stat(filepath.Join(target, "Packages/b/orphan-9.9.rpm"))
	require.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(target, "Packages/a/acl-2.3.1.rpm"))
	require.NoError(t, err, "referenced file must survive")
}

func TestCleanNeverRemovesDirectories(t *testing.T) {
	target := t.TempDir()
	emptyDir := filepath.Join(target, "Packages", "empty")
	require.NoError(t, os.MkdirAll(emptyDir, 0o755))

	deleted, err := Clean(target, map[string]bool{})
	require.NoError(t, err)
	require.Empty(t, deleted)

	_, err = os.Stat(emptyDir)
	require.NoError(t, err)
}

func TestCleanNoopWhenEverythingReferenced(t *testing.T) {
	target := t.TempDir()
	path := filepath.Join(target, "repodata", "repomd.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	deleted, err := Clean(target, map[string]bool{"repodata/repomd.xml": true})
	require.NoError(t, err)
	sort.Strings(deleted)
	require.Empty(t, deleted)
}
