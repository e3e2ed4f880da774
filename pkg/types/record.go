// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperfetch pipeline:
// bibliographic records, resolution results, retrieval outcomes, and
// stage configuration.
package types

// Record is one bibliographic entry supplied by the metadata search.
// Identifier is opaque to the retrieval engine (a PubMed ID in practice);
// the descriptive fields are used for title-keyed lookups, filenames, and
// logging only. A Record is never modified once the search returns it.
type Record struct {
	// Identifier is the external record identifier (e.g. PMID "31452104").
	Identifier string `json:"identifier" yaml:"identifier"`

	// Title is the article title as returned by the metadata search.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, or 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Journal is the journal or venue name.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// DOI is the article DOI when the search reports one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// FirstAuthor returns the first listed author, or "" when there are none.
func (r Record) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0]
}
