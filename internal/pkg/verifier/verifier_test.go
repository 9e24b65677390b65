// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package verifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.rpm")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDigestKnownVectors(t *testing.T) {
	path := writeFixture(t, "hello world")

	digest, err := Digest(path, "sha256")
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)

	digest, err = Digest(path, "md5")
	require.NoError(t, err)
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", digest)

	digest, err = Digest(path, "RIPEMD160")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
}

func TestDigestUnknownAlgorithm(t *testing.T) {
	path := writeFixture(t, "hello world")
	_, err := Digest(path, "crc32")
	require.ErrorIs(t, err, reposyncerr.ErrAlgorithm)
}

func TestVerifySizeMismatchShortCircuits(t *testing.T) {
	path := writeFixture(t, "hello world")
	ok, err := Verify(path, 99999, metaindex.Checksum{Algorithm: "sha256", Digest: "deadbeef"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyMatch(t *testing.T) {
	path := writeFixture(t, "hello world")
	ok, err := Verify(path, int64(len("hello world")), metaindex.Checksum{
		Algorithm: "sha256",
		Digest:    "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyDigestMismatch(t *testing.T) {
	path := writeFixture(t, "hello world")
	ok, err := Verify(path, int64(len("hello world")), metaindex.Checksum{
		Algorithm: "sha256",
		Digest:    "0000000000000000000000000000000000000000000000000000000000000",
	})
	require.NoError(t, err)
	require.False(t, ok)
}
