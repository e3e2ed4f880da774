// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Source identifies which external system satisfied a resolution.
type Source string

const (
	SourceNone                    Source = "None"
	SourceRepositoryA             Source = "RepositoryA"
	SourcePreprintServer          Source = "PreprintServer"
	SourceSecondaryPreprintServer Source = "SecondaryPreprintServer"
	SourceAuthorCopyIndex         Source = "AuthorCopyIndex"
)

// Label returns the name of the concrete system behind the source.
func (s Source) Label() string {
	switch s {
	case SourceRepositoryA:
		return "PubMed Central"
	case SourcePreprintServer:
		return "bioRxiv/medRxiv"
	case SourceSecondaryPreprintServer:
		return "arXiv"
	case SourceAuthorCopyIndex:
		return "ResearchGate"
	default:
		return "none"
	}
}

// AccessType classifies how trustworthy a resolved location is.
type AccessType string

const (
	AccessOpenAccess  AccessType = "OpenAccess"
	AccessAuthorCopy  AccessType = "AuthorCopy"
	AccessUnavailable AccessType = "Unavailable"
)

// ResolutionResult is the normalized answer of one adapter or of the whole
// resolution chain. It is a terminal value: built once and never mutated.
type ResolutionResult struct {
	Found      bool       `json:"found" yaml:"found"`
	URL        string     `json:"url,omitempty" yaml:"url,omitempty"`
	Source     Source     `json:"source" yaml:"source"`
	AccessType AccessType `json:"access_type" yaml:"access_type"`
}

// NotFound is the result returned when no source has the document.
func NotFound() ResolutionResult {
	return ResolutionResult{Source: SourceNone, AccessType: AccessUnavailable}
}

// FoundAt builds a positive result for url at source.
func FoundAt(source Source, url string, access AccessType) ResolutionResult {
	return ResolutionResult{Found: true, URL: url, Source: source, AccessType: access}
}
