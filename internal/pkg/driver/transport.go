// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"net/http"
	"os"
	"path/filepath"

	"go.reposync.dev/reposync/internal/pkg/metaindex"
)

// noGzipTransport disables the standard library's transparent gzip
// decoding: repository payloads are gzipped at the application layer
// already, and re-decompressing in the HTTP layer would defeat the
// content-sniffing MetaIndex does on the raw bytes.
func noGzipTransport() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = true
	return t
}

func readPrimary(target, href string) (*metaindex.PrimaryList, error) {
	raw, err := os.ReadFile(filepath.Join(target, href))
	if err != nil {
		return nil, err
	}
	return metaindex.DecodePrimary(raw)
}

func readPrestodelta(target, href string) (*metaindex.PrestoDeltaList, error) {
	raw, err := os.ReadFile(filepath.Join(target, href))
	if err != nil {
		return nil, err
	}
	return metaindex.DecodePrestodelta(raw)
}
