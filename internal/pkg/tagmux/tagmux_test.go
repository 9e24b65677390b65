// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package tagmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(m *TagMux) [][2]string {
	var pairs [][2]string
	for {
		src, dst, ok := m.Next()
		if !ok {
			break
		}
		pairs = append(pairs, [2]string{src, dst})
	}
	return pairs
}

func TestNoTags(t *testing.T) {
	m := New("src", "dst", nil, nil)
	pairs := collect(m)
	require.Equal(t, [][2]string{{"src", "dst"}}, pairs)
}

func TestProductSize(t *testing.T) {
	tags := map[string][]string{
		"os":   {"fedora", "epel"},
		"arch": {"SRPMS", "x86_64", "i686"},
	}
	names := []string{"os", "arch"}

	m := New("src/$os/$arch", "dst/$os/$arch", tags, names)
	pairs := collect(m)

	require.Len(t, pairs, 6)

	seen := make(map[[2]string]bool)
	for _, p := range pairs {
		require.False(t, seen[p], "duplicate pair %v", p)
		seen[p] = true
	}

	require.Contains(t, pairs, [2]string{"src/fedora/SRPMS", "dst/fedora/SRPMS"})
	require.Contains(t, pairs, [2]string{"src/fedora/x86_64", "dst/fedora/x86_64"})
	require.Contains(t, pairs, [2]string{"src/fedora/i686", "dst/fedora/i686"})
	require.Contains(t, pairs, [2]string{"src/epel/SRPMS", "dst/epel/SRPMS"})
	require.Contains(t, pairs, [2]string{"src/epel/x86_64", "dst/epel/x86_64"})
	require.Contains(t, pairs, [2]string{"src/epel/i686", "dst/epel/i686"})
}

func TestUnknownTagPassthrough(t *testing.T) {
	tags := map[string][]string{"os": {"fedora", "epel"}}
	m := New("$os/$other", "$os/$other", tags, []string{"os"})

	pairs := collect(m)
	require.Len(t, pairs, 2)
	for _, p := range pairs {
		require.Contains(t, p[0], "/$other")
		require.Contains(t, p[1], "/$other")
	}
}

func TestEmptyVariantListYieldsEmptySequence(t *testing.T) {
	tags := map[string][]string{
		"os":   {"fedora"},
		"arch": {},
	}
	m := New("$os/$arch", "$os/$arch", tags, []string{"os", "arch"})
	require.Empty(t, collect(m))
}

func TestSortedNames(t *testing.T) {
	tags := map[string][]string{"b": {"1"}, "a": {"1"}, "c": {"1"}}
	require.Equal(t, []string{"a", "b", "c"}, SortedNames(tags))
}
