// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package metaindex

import (
	"encoding/xml"
	"fmt"

	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// DeltaFile is one <delta> entry from a prestodelta.xml document: a
// binary delta RPM that can rebuild a newer package from an older one
// already on disk.
type DeltaFile struct {
	Name       string
	OldVersion Version
	Href       string
	Checksum   Checksum
	Size       int64
}

// PrestoDeltaList is the unordered set of delta RPMs a repository
// advertises. Absence of prestodelta.xml entirely is not an error —
// not every repository carries deltas.
type PrestoDeltaList struct {
	Deltas []DeltaFile
}

type prestodeltaXML struct {
	XMLName xml.Name `xml:"prestodelta"`
	Newpkgs []struct {
		Name   string `xml:"name,attr"`
		Deltas []struct {
			OldVersion string `xml:"oldversion,attr"`
			Filename   string `xml:"filename"`
			Checksum   struct {
				Type  string `xml:"type,attr"`
				Value string `xml:",chardata"`
			} `xml:"checksum"`
			Size int64 `xml:"size"`
		} `xml:"delta"`
	} `xml:"newpackage"`
}

// DecodePrestodelta content-sniffs and parses a prestodelta.xml(.gz)
// payload. CheckMode Hash applies to delta payloads exactly as it does
// to primary payloads: there is no relaxed mode for deltas.
func DecodePrestodelta(raw []byte) (*PrestoDeltaList, error) {
	decoded, err := decompressPayload(raw)
	if err != nil {
		return nil, err
	}

	var doc prestodeltaXML
	if err := xml.Unmarshal(decoded, &doc); err != nil {
		return nil, fmt.Errorf("decoding prestodelta.xml: %w: %w", reposyncerr.ErrDecode, err)
	}

	list := &PrestoDeltaList{}
	for _, pkg := range doc.Newpkgs {
		for _, d := range pkg.Deltas {
			list.Deltas = append(list.Deltas, DeltaFile{
				Name:       pkg.Name,
				OldVersion: parseOldVersion(d.OldVersion),
				Href:       d.Filename,
				Checksum: Checksum{
					Algorithm: d.Checksum.Type,
					Digest:    d.Checksum.Value,
				},
				Size: d.Size,
			})
		}
	}

	return list, nil
}

// parseOldVersion accepts the "epoch:ver-rel" oldversion attribute in
// its loosest observed form; a malformed string just yields a Version
// with the whole string as Ver, which still sorts and compares fine.
func parseOldVersion(raw string) Version {
	epoch := ""
	rest := raw
	for i, r := range raw {
		if r == ':' {
			epoch = raw[:i]
			rest = raw[i+1:]
			break
		}
	}
	ver, rel := rest, ""
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == '-' {
			ver, rel = rest[:i], rest[i+1:]
			break
		}
	}
	return Version{Epoch: epoch, Ver: ver, Rel: rel}
}

// FilesForSync returns the sorted, deduplicated WorkItem set derived
// from this delta list.
func (l *PrestoDeltaList) FilesForSync() []WorkItem {
	return dedupSorted(l.Deltas, func(d DeltaFile) WorkItem {
		return WorkItem{Href: d.Href, Size: d.Size, Checksum: d.Checksum}
	})
}
