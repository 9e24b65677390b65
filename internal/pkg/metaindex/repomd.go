// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package metaindex models and parses the repomd/primary/prestodelta
// document family that makes up a YUM repository's metadata index.
package metaindex

import (
	"encoding/xml"
	"fmt"
	"path"

	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

const (
	// RepomdPath is the fixed, well-known location of the top-level
	// index within a repository tree.
	RepomdPath = "repodata/repomd.xml"

	typePrimary     = "primary"
	typePrestodelta = "prestodelta"
)

// DataEntry is one <data> child of a repomd document: a metadata file
// type tag plus its repository-relative location.
type DataEntry struct {
	Type string
	Href string
}

// RepoIndex is the parsed repomd.xml document: an optional revision and
// the ordered list of metadata file descriptors it enumerates.
type RepoIndex struct {
	Revision *int64
	Data     []DataEntry
}

type repomdXML struct {
	XMLName  xml.Name `xml:"repomd"`
	Revision *int64   `xml:"revision"`
	Data     []struct {
		Type     string `xml:"type,attr"`
		Location struct {
			Href string `xml:"href,attr"`
		} `xml:"location"`
	} `xml:"data"`
}

// DecodeRepomd parses a repomd.xml document directly (it is never
// compressed on the wire).
func DecodeRepomd(raw []byte) (*RepoIndex, error) {
	var doc repomdXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding repomd.xml: %w: %w", reposyncerr.ErrDecode, err)
	}

	index := &RepoIndex{Revision: doc.Revision}
	for _, d := range doc.Data {
		index.Data = append(index.Data, DataEntry{Type: d.Type, Href: d.Location.Href})
	}
	return index, nil
}

// Equal implements RepoIndex equality: both sides must carry a
// revision, and the revisions must match. A missing revision on either
// side always forces inequality (and so a refresh).
func (r *RepoIndex) Equal(other *RepoIndex) bool {
	if r == nil || other == nil {
		return false
	}
	if r.Revision == nil || other.Revision == nil {
		return false
	}
	return *r.Revision == *other.Revision
}

// MetaFiles returns repomd.xml followed by every data href, in
// document order.
func (r *RepoIndex) MetaFiles() []string {
	files := make([]string, 0, len(r.Data)+1)
	files = append(files, RepomdPath)
	for _, d := range r.Data {
		files = append(files, d.Href)
	}
	return files
}

// PrimaryPath returns the href of the first "primary" data entry.
// Its absence is fatal: a mirror without a primary package list can't
// be synced.
func (r *RepoIndex) PrimaryPath() (string, error) {
	for _, d := range r.Data {
		if d.Type == typePrimary {
			return d.Href, nil
		}
	}
	return "", fmt.Errorf("%s: %w", path.Base(RepomdPath), reposyncerr.ErrMissingPrimary)
}

// PrestodeltaPath returns the href of the first "prestodelta" data
// entry, or ok=false if there is none.
func (r *RepoIndex) PrestodeltaPath() (href string, ok bool) {
	for _, d := range r.Data {
		if d.Type == typePrestodelta {
			return d.Href, true
		}
	}
	return "", false
}
