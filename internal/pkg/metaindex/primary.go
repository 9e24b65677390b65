// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package metaindex

import (
	"encoding/xml"
	"fmt"
	"sort"

	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// Version is an RPM epoch/version/release triple.
type Version struct {
	Epoch string
	Ver   string
	Rel   string
}

func (v Version) String() string {
	return fmt.Sprintf("%s:%s-%s", v.Epoch, v.Ver, v.Rel)
}

func (v Version) less(o Version) bool {
	if v.Epoch != o.Epoch {
		return v.Epoch < o.Epoch
	}
	if v.Ver != o.Ver {
		return v.Ver < o.Ver
	}
	return v.Rel < o.Rel
}

// Package is one <package> entry from a primary.xml document.
type Package struct {
	Name     string
	Version  Version
	Href     string
	Checksum Checksum
	Size     int64 // declared package (on-wire) size; installed/archive sizes aren't used
}

// PrimaryList is the unordered multiset of packages a repository
// advertises.
type PrimaryList struct {
	Packages []Package
}

type primaryXML struct {
	XMLName  xml.Name `xml:"metadata"`
	Packages []struct {
		Name    string `xml:"name"`
		Version struct {
			Epoch string `xml:"epoch,attr"`
			Ver   string `xml:"ver,attr"`
			Rel   string `xml:"rel,attr"`
		} `xml:"version"`
		Location struct {
			Href string `xml:"href,attr"`
		} `xml:"location"`
		Checksum struct {
			Type  string `xml:"type,attr"`
			Value string `xml:",chardata"`
		} `xml:"checksum"`
		Size struct {
			Package int64 `xml:"package,attr"`
		} `xml:"size"`
	} `xml:"package"`
}

// DecodePrimary content-sniffs and parses a primary.xml(.gz) payload.
func DecodePrimary(raw []byte) (*PrimaryList, error) {
	decoded, err := decompressPayload(raw)
	if err != nil {
		return nil, err
	}

	var doc primaryXML
	if err := xml.Unmarshal(decoded, &doc); err != nil {
		return nil, fmt.Errorf("decoding primary.xml: %w: %w", reposyncerr.ErrDecode, err)
	}

	list := &PrimaryList{Packages: make([]Package, 0, len(doc.Packages))}
	for _, p := range doc.Packages {
		list.Packages = append(list.Packages, Package{
			Name:    p.Name,
			Version: Version{Epoch: p.Version.Epoch, Ver: p.Version.Ver, Rel: p.Version.Rel},
			Href:    p.Location.Href,
			Checksum: Checksum{
				Algorithm: p.Checksum.Type,
				Digest:    p.Checksum.Value,
			},
			Size: p.Size.Package,
		})
	}

	return list, nil
}

// Sorted returns the package list ordered by (href, version, name),
// href dominating. Used only to produce a deterministic enumeration.
func (l *PrimaryList) Sorted() []Package {
	sorted := make([]Package, len(l.Packages))
	copy(sorted, l.Packages)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Href != b.Href {
			return a.Href < b.Href
		}
		if a.Version != b.Version {
			return a.Version.less(b.Version)
		}
		return a.Name < b.Name
	})

	return sorted
}

// FilesForSync returns the sorted, deduplicated WorkItem set derived
// from this package list.
func (l *PrimaryList) FilesForSync() []WorkItem {
	return dedupSorted(l.Packages, func(p Package) WorkItem {
		return WorkItem{Href: p.Href, Size: p.Size, Checksum: p.Checksum}
	})
}
