// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package metaindex

import (
	"fmt"
	"strings"

	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// Checksum is a declared (algorithm, lowercase hex digest) pair as
// carried by a <checksum> element.
type Checksum struct {
	Algorithm string
	Digest    string
}

// SupportedAlgorithms are the checksum algorithms this tool recognizes.
// Anything else is a fatal per-file AlgorithmError.
var SupportedAlgorithms = map[string]bool{
	"md5":       true,
	"sha1":      true,
	"sha224":    true,
	"sha256":    true,
	"sha384":    true,
	"sha512":    true,
	"ripemd160": true,
}

// Validate rejects a checksum whose declared algorithm this tool
// doesn't implement.
func (c Checksum) Validate() error {
	if !SupportedAlgorithms[strings.ToLower(c.Algorithm)] {
		return fmt.Errorf("%s: %w", c.Algorithm, reposyncerr.ErrAlgorithm)
	}
	return nil
}
