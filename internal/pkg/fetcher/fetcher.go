// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package fetcher downloads a single remote file into a local path
// under the atomic rename-from-temp discipline the rest of the sync
// engine depends on.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
	"go.reposync.dev/reposync/internal/pkg/verifier"
)

// Kind selects how much a Check verifies, from cheapest to strictest.
type Kind int

const (
	// Metadata performs no size/hash check: repomd/primary/prestodelta
	// documents have no pre-known size before they're parsed.
	Metadata Kind = iota
	// RemoteSize verifies only the freshly downloaded byte count;
	// an existing local file is accepted unconditionally.
	RemoteSize
	// Size additionally compares an existing local file's size before
	// deciding to skip.
	Size
	// Hash additionally computes and compares a checksum, both for an
	// existing local file and for a freshly downloaded one.
	Hash
)

// Check carries a Kind plus whatever data that kind needs to verify
// against: RemoteSize and Size carry Size; Hash carries both Size and
// Checksum; Metadata carries neither.
type Check struct {
	Kind     Kind
	Size     int64
	Checksum metaindex.Checksum
}

func NewMetadataCheck() Check { return Check{Kind: Metadata} }

func NewRemoteSizeCheck(size int64) Check { return Check{Kind: RemoteSize, Size: size} }

func NewSizeCheck(size int64) Check { return Check{Kind: Size, Size: size} }

func NewHashCheck(size int64, checksum metaindex.Checksum) Check {
	return Check{Kind: Hash, Size: size, Checksum: checksum}
}

// chunkSize bounds the producer/consumer pipeline's channel payloads.
const chunkSize = 256 * 1024

// chunk carries one read off the network, or an error that terminates
// the pipeline.
type chunk struct {
	data []byte
	err  error
}

// Fetch downloads remoteURL to localPath, applying check's pre- and
// post-download verification, and returns the number of bytes
// actually downloaded (0 on a skip).
func Fetch(ctx context.Context, client *http.Client, remoteURL, localPath string, check Check) (int64, error) {
	if skip, err := shouldSkip(localPath, check); err != nil {
		return 0, err
	} else if skip {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating parent directories for %s: %w: %w", localPath, reposyncerr.ErrFilesystem, err)
	}

	tmpPath := localPath + ".sync.tmp"
	size, err := download(ctx, client, remoteURL, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	if err := verifyDownload(tmpPath, size, check); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("publishing %s: %w: %w", localPath, reposyncerr.ErrFilesystem, err)
	}

	return size, nil
}

func shouldSkip(localPath string, check Check) (bool, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stating %s: %w: %w", localPath, reposyncerr.ErrFilesystem, err)
	}

	switch check.Kind {
	case Metadata, RemoteSize:
		return true, nil
	case Size:
		return info.Size() == check.Size, nil
	case Hash:
		ok, err := verifier.Verify(localPath, check.Size, check.Checksum)
		if err != nil {
			return false, err
		}
		return ok, nil
	default:
		return false, fmt.Errorf("unhandled check kind %d", check.Kind)
	}
}

// download streams remoteURL into tmpPath via a single-producer
// (network read)/single-consumer (disk write) pipeline joined by a
// channel of byte chunks, per the no-full-buffering streaming
// discipline: the two sides run concurrently and a failure on either
// aborts the other.
func download(ctx context.Context, client *http.Client, remoteURL, tmpPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building request for %s: %w: %w", remoteURL, reposyncerr.ErrNetwork, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %w: %w", remoteURL, reposyncerr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching %s: unexpected status %s: %w", remoteURL, resp.Status, reposyncerr.ErrNetwork)
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w: %w", tmpPath, reposyncerr.ErrFilesystem, err)
	}
	defer out.Close()

	chunks := make(chan chunk)
	done := make(chan struct{})

	go produce(ctx, resp.Body, chunks, done)

	var written int64
	var writeErr error

consume:
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				break consume
			}
			if c.err != nil {
				writeErr = c.err
				break consume
			}
			n, err := out.Write(c.data)
			written += int64(n)
			if err != nil {
				writeErr = fmt.Errorf("writing %s: %w: %w", tmpPath, reposyncerr.ErrFilesystem, err)
				close(done)
				break consume
			}
		case <-ctx.Done():
			writeErr = fmt.Errorf("fetching %s: %w: %w", remoteURL, reposyncerr.ErrNetwork, ctx.Err())
			close(done)
			break consume
		}
	}

	// drain so the producer goroutine never blocks forever on a send
	// after we've stopped reading.
	go func() {
		for range chunks {
		}
	}()

	if writeErr != nil {
		return written, writeErr
	}
	return written, nil
}

func produce(ctx context.Context, body io.Reader, chunks chan<- chunk, done <-chan struct{}) {
	defer close(chunks)
	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case chunks <- chunk{data: data}:
			case <-done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case chunks <- chunk{err: fmt.Errorf("reading body: %w: %w", reposyncerr.ErrNetwork, err)}:
				case <-done:
				}
			}
			return
		}
	}
}

func verifyDownload(tmpPath string, downloaded int64, check Check) error {
	switch check.Kind {
	case Metadata:
		return nil
	case RemoteSize, Size:
		if downloaded != check.Size {
			return fmt.Errorf("%s: downloaded %d bytes, expected %d: %w", tmpPath, downloaded, check.Size, reposyncerr.ErrIntegrity)
		}
		return nil
	case Hash:
		if downloaded != check.Size {
			return fmt.Errorf("%s: downloaded %d bytes, expected %d: %w", tmpPath, downloaded, check.Size, reposyncerr.ErrIntegrity)
		}
		ok, err := verifier.Verify(tmpPath, check.Size, check.Checksum)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: checksum mismatch: %w", tmpPath, reposyncerr.ErrIntegrity)
		}
		return nil
	default:
		return fmt.Errorf("unhandled check kind %d", check.Kind)
	}
}

