// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status is the terminal state of one record in a batch.
type Status string

const (
	// StatusDownloaded means a validated file was written to LocalPath.
	StatusDownloaded Status = "Downloaded"
	// StatusResolutionFailed means no source produced a usable URL.
	StatusResolutionFailed Status = "ResolutionFailed"
	// StatusFetchFailed means the transport failed after the retry budget.
	StatusFetchFailed Status = "FetchFailed"
	// StatusValidationFailed means bytes arrived but were not a document.
	StatusValidationFailed Status = "ValidationFailed"
	// StatusSkipped means the destination file already existed.
	StatusSkipped Status = "Skipped"
	// StatusCancelled means the batch was cancelled before the record
	// started or while it was in flight.
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusDownloaded,
	StatusSkipped,
	StatusResolutionFailed,
	StatusFetchFailed,
	StatusValidationFailed,
	StatusCancelled,
}

// Undownloadable reports whether the status means a document was located
// but could not be retrieved.
func (s Status) Undownloadable() bool {
	return s == StatusFetchFailed || s == StatusValidationFailed
}

// RetrievalOutcome records what happened to one record in one batch run.
// SourceUsed is set only when Status is StatusDownloaded, and BytesWritten
// is positive in that case.
type RetrievalOutcome struct {
	RecordID     string        `json:"record_id" yaml:"record_id"`
	Title        string        `json:"title,omitempty" yaml:"title,omitempty"`
	Status       Status        `json:"status" yaml:"status"`
	LocalPath    string        `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	SourceUsed   Source        `json:"source_used,omitempty" yaml:"source_used,omitempty"`
	AccessType   AccessType    `json:"access_type,omitempty" yaml:"access_type,omitempty"`
	URL          string        `json:"url,omitempty" yaml:"url,omitempty"`
	BytesWritten int64         `json:"bytes_written,omitempty" yaml:"bytes_written,omitempty"`
	Attempts     int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	ErrorDetail  string        `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	Duration     time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}
