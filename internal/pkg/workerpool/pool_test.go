// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"go.reposync.dev/reposync/internal/pkg/metaindex"
)

func items(n int) []metaindex.WorkItem {
	out := make([]metaindex.WorkItem, n)
	for i := range out {
		out[i] = metaindex.WorkItem{Href: fmt.Sprintf("Packages/pkg-%03d.rpm", i)}
	}
	return out
}

func TestRunVisitsEveryItemExactlyOnce(t *testing.T) {
	const n = 500
	var mu sync.Mutex
	seen := make(map[string]int, n)

	err := Run(items(n), func(item metaindex.WorkItem) error {
		mu.Lock()
		seen[item.Href]++
		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	require.Len(t, seen, n)
	for href, count := range seen {
		require.Equal(t, 1, count, "href %s visited more than once", href)
	}
}

func TestRunCollectsAllErrors(t *testing.T) {
	var failures int32

	err := Run(items(20), func(item metaindex.WorkItem) error {
		atomic.AddInt32(&failures, 1)
		return fmt.Errorf("failed: %s", item.Href)
	})

	require.Error(t, err)
	require.EqualValues(t, 20, failures, "every item must still be attempted")

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	require.Len(t, merr.Errors, 20)
}

func TestRunFewerItemsThanWorkers(t *testing.T) {
	err := Run(items(3), func(metaindex.WorkItem) error { return nil })
	require.NoError(t, err)
}

func TestRunEmptySetIsNoop(t *testing.T) {
	err := Run(nil, func(metaindex.WorkItem) error {
		t.Fatal("should never be called")
		return nil
	})
	require.NoError(t, err)
}
