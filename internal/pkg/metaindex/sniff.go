// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package metaindex

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

var gzipMagic = []byte{0x1F, 0x8B}

// decompressPayload content-sniffs a primary/prestodelta payload: gzip
// magic means decompress-then-return, a leading '<' (after optional
// whitespace, the only leading bytes real repodata ever carries) means
// the buffer is already XML, anything else is rejected outright.
func decompressPayload(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("opening gzip payload: %w: %w", reposyncerr.ErrDecode, err)
		}
		defer gz.Close()

		decoded, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("decompressing payload: %w: %w", reposyncerr.ErrDecode, err)
		}
		return decoded, nil
	}

	if looksLikeXML(raw) {
		return raw, nil
	}

	return nil, fmt.Errorf("incompatible filetype: %w", reposyncerr.ErrDecode)
}

func looksLikeXML(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<"))
}
