// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package metaindex

import "sort"

// WorkItem is the flattened, download-ready unit the rest of the sync
// engine operates on: a repository-relative path, its declared size,
// and the checksum it must validate against. Both PrimaryList and
// PrestoDeltaList reduce to a sorted, deduplicated slice of these,
// keyed on Href.
type WorkItem struct {
	Href     string
	Size     int64
	Checksum Checksum
}

// dedupSorted reduces a raw entry slice to the sorted set of WorkItems
// implied by it, keeping the first entry seen for any repeated Href.
// The href is the dedup key: the same package can legitimately appear
// more than once in a primary.xml across architectures sharing a
// noarch subpackage, and only one copy needs fetching.
func dedupSorted[T any](entries []T, toItem func(T) WorkItem) []WorkItem {
	seen := make(map[string]bool, len(entries))
	items := make([]WorkItem, 0, len(entries))

	for _, e := range entries {
		item := toItem(e)
		if seen[item.Href] {
			continue
		}
		seen[item.Href] = true
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Href < items[j].Href
	})

	return items
}
