// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package cleaner removes files from a published target tree that are
// no longer referenced by its metadata, by walking the tree and
// testing set membership rather than computing an explicit delta.
package cleaner

import (
	"fmt"
	"os"
	"path/filepath"

	"go.reposync.dev/reposync/internal/pkg/metaindex"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// ReferenceSet builds the set of repo-relative paths a target tree is
// allowed to contain after a successful cycle: every meta file, plus
// every package/delta href the staged metadata names.
func ReferenceSet(index *metaindex.RepoIndex, primary *metaindex.PrimaryList, presto *metaindex.PrestoDeltaList) map[string]bool {
	refs := make(map[string]bool)

	for _, href := range index.MetaFiles() {
		refs[href] = true
	}
	for _, item := range primary.FilesForSync() {
		refs[item.Href] = true
	}
	if presto != nil {
		for _, item := range presto.FilesForSync() {
			refs[item.Href] = true
		}
	}

	return refs
}

// Clean walks target and deletes every regular file whose path
// relative to target is not in refs. Directories are never removed,
// even once emptied: a later cycle may repopulate them.
func Clean(target string, refs map[string]bool) ([]string, error) {
	var deleted []string

	err := filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(target, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
		}
		rel = filepath.ToSlash(rel)

		if refs[rel] {
			return nil
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w: %w", path, reposyncerr.ErrFilesystem, err)
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return deleted, err
	}

	return deleted, nil
}
