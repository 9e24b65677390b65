// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package tagmux expands a (src, dst) URL template pair across the
// cartesian product of a set of named tag variants.
package tagmux

import (
	"regexp"
	"sort"
)

var tagPattern = regexp.MustCompile(`\$([-a-zA-Z0-9_]+)`)

// TagMux produces every (expanded src, expanded dst) combination for a
// set of tags, one combination per distinct assignment of a variant to
// each tag. Iteration order advances the first tag (in the order of the
// names passed to New) fastest; order beyond "every combination exactly once" is
// not part of the contract.
type TagMux struct {
	src, dst string
	names    []string
	variants [][]string
	index    []int
	done     bool
	empty    bool
}

// New builds a TagMux over src/dst templates and a tag-name-to-variants
// map. The iteration order of tags follows names, which callers should
// pass in the configuration's insertion order.
func New(src, dst string, tags map[string][]string, names []string) *TagMux {
	m := &TagMux{src: src, dst: dst}

	for _, name := range names {
		variants := tags[name]
		if len(variants) == 0 {
			m.empty = true
			return m
		}
		m.names = append(m.names, name)
		m.variants = append(m.variants, variants)
	}

	m.index = make([]int, len(m.names))
	return m
}

// SortedNames returns the keys of tags sorted, a convenient default
// ordering when config loading doesn't otherwise preserve insertion
// order.
func SortedNames(tags map[string][]string) []string {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next expanded (src, dst) pair, or ok=false once the
// product is exhausted (or was empty from the start).
func (m *TagMux) Next() (src, dst string, ok bool) {
	if m.empty || m.done {
		return "", "", false
	}

	if len(m.names) == 0 {
		m.done = true
		return m.src, m.dst, true
	}

	set := make(map[string]string, len(m.names))
	for i, name := range m.names {
		set[name] = m.variants[i][m.index[i]]
	}

	src = expand(m.src, set)
	dst = expand(m.dst, set)

	m.advance()

	return src, dst, true
}

// advance increments the lexicographic counter over m.index, carrying
// into higher tags, and marks the mux done once it wraps fully.
func (m *TagMux) advance() {
	for i := range m.index {
		m.index[i]++
		if m.index[i] < len(m.variants[i]) {
			return
		}
		m.index[i] = 0
	}
	m.done = true
}

// expand substitutes every $tag reference found in set, leaving
// unknown tag references untouched.
func expand(template string, set map[string]string) string {
	return tagPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1:]
		if value, ok := set[name]; ok {
			return value
		}
		return match
	})
}
