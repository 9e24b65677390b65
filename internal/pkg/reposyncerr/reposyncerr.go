// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package reposyncerr defines the error taxonomy shared across the
// sync engine so callers can classify a failure (and the driver can
// decide whether it is per-pair or fatal to the whole process) without
// parsing error strings.
package reposyncerr

import "errors"

// Sentinel errors, wrapped with context via fmt.Errorf("...: %w", Sentinel)
// at the point of failure. Use errors.Is against these.
var (
	// ErrConfig means the configuration file could not be loaded or
	// parsed. Fatal to the process.
	ErrConfig = errors.New("config error")

	// ErrNetwork means an HTTP request failed, timed out, or the
	// connection was reset. Fatal to the current pair only.
	ErrNetwork = errors.New("network error")

	// ErrDecode means an XML payload was malformed or its compression
	// could not be identified.
	ErrDecode = errors.New("decode error")

	// ErrIntegrity means a downloaded file's size or checksum did not
	// match its declared metadata.
	ErrIntegrity = errors.New("integrity error")

	// ErrFilesystem means an I/O or rename operation failed.
	ErrFilesystem = errors.New("filesystem error")

	// ErrMissingPrimary means a repomd index has no "primary" entry.
	ErrMissingPrimary = errors.New("missing primary metadata")

	// ErrAlgorithm means a checksum algorithm name is not recognized.
	ErrAlgorithm = errors.New("unknown checksum algorithm")
)
