// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package workerpool runs a fixed number of workers over a shared work
// queue, collecting every failure instead of stopping at the first.
package workerpool

import (
	"sync"

	"github.com/hashicorp/go-multierror"

	"go.reposync.dev/reposync/internal/pkg/metaindex"
)

// Workers is the fixed pool width spec.md mandates: 8, not configurable.
const Workers = 8

// iterator is the queue's only mutable shared state: a position into
// the sorted work set, protected by a mutex held only across next().
type iterator struct {
	mu    sync.Mutex
	items []metaindex.WorkItem
	pos   int
}

func (it *iterator) next() (metaindex.WorkItem, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.pos >= len(it.items) {
		return metaindex.WorkItem{}, false
	}
	item := it.items[it.pos]
	it.pos++
	return item, true
}

// Run fans work out to Workers goroutines pulling from a mutex-guarded
// shared iterator over items (in the order given — callers pass the
// already-sorted set). Every worker's errors are aggregated into a
// single *multierror.Error rather than the run stopping at the first
// failure, so one bad download doesn't hide the rest.
func Run(items []metaindex.WorkItem, fn func(metaindex.WorkItem) error) error {
	it := &iterator{items: items}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs *multierror.Error

	workers := Workers
	if len(items) < workers {
		workers = len(items)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, ok := it.next()
				if !ok {
					return
				}
				if err := fn(item); err != nil {
					errMu.Lock()
					errs = multierror.Append(errs, err)
					errMu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	return errs.ErrorOrNil()
}
