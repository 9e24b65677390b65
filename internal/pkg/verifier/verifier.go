// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package verifier computes and checks the digests the sync engine
// uses to decide whether a cached file still matches what a
// repository's metadata declares.
package verifier

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ripemd160"

	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// blockSize is the read chunk used while streaming a file through its
// hash; it keeps memory use flat regardless of package size.
const blockSize = 8 * 1024 * 1024

func newHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha224":
		return sha256.New224(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	case "ripemd160":
		return ripemd160.New(), nil
	default:
		return nil, fmt.Errorf("%s: %w", algorithm, reposyncerr.ErrAlgorithm)
	}
}

// Digest streams path through the named algorithm and returns its
// lowercase hex digest.
func Digest(path, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
	}
	defer f.Close()

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether path's declared size and checksum match the
// checksum's algorithm and digest. A size mismatch never even opens
// the file: it is a cheaper and equally conclusive negative.
func Verify(path string, size int64, checksum metaindex.Checksum) (bool, error) {
	if err := checksum.Validate(); err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stating %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
	}
	if info.Size() != size {
		return false, nil
	}

	digest, err := Digest(path, checksum.Algorithm)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(digest, checksum.Digest), nil
}
