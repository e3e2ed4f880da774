// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger holds the provenance record of a batch run: one outcome
// per input record, in input order, plus a derived summary. A Ledger is
// appended to while the run is in progress and frozen when it ends; it can
// then be rendered as YAML, JSON or a text report and persisted to the
// history store.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// ErrFrozen is returned when appending to a ledger after Freeze.
var ErrFrozen = errors.New("ledger is frozen")

// Ledger is the ordered provenance record of one batch run.
type Ledger struct {
	RunID      string                   `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time                `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time                `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Summary    Summary                  `json:"summary" yaml:"summary"`
	Entries    []types.RetrievalOutcome `json:"entries" yaml:"entries"`

	frozen bool
}

// Summary aggregates a ledger's entries.
type Summary struct {
	Total      int                  `json:"total" yaml:"total"`
	ByStatus   map[types.Status]int `json:"by_status" yaml:"by_status"`
	BySource   map[types.Source]int `json:"by_source" yaml:"by_source"`
	TotalBytes int64                `json:"total_bytes" yaml:"total_bytes"`

	// NotFound counts records no source could locate.
	NotFound int `json:"not_found" yaml:"not_found"`

	// Undownloadable counts records that were located but not retrieved.
	Undownloadable int `json:"undownloadable" yaml:"undownloadable"`
}

// New starts an empty ledger for runID.
func New(runID string, startedAt time.Time) *Ledger {
	return &Ledger{RunID: runID, StartedAt: startedAt}
}

// Append adds the next outcome. Outcomes must be appended in input order.
func (l *Ledger) Append(o types.RetrievalOutcome) error {
	if l.frozen {
		return ErrFrozen
	}
	l.Entries = append(l.Entries, o)
	return nil
}

// Freeze computes the summary and rejects further appends. Calling Freeze
// twice is a no-op.
func (l *Ledger) Freeze(finishedAt time.Time) {
	if l.frozen {
		return
	}
	l.FinishedAt = finishedAt
	l.Summary = Summarize(l.Entries)
	l.frozen = true
}

// Frozen reports whether Freeze has been called.
func (l *Ledger) Frozen() bool { return l.frozen }

// Duration is the wall time of the run, or zero before Freeze.
func (l *Ledger) Duration() time.Duration {
	if l.FinishedAt.IsZero() {
		return 0
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

// HasFailures reports whether any record was located but could not be
// retrieved.
func (l *Ledger) HasFailures() bool {
	return l.Summary.Undownloadable > 0
}

// Entry returns the outcome for recordID.
func (l *Ledger) Entry(recordID string) (types.RetrievalOutcome, bool) {
	for _, e := range l.Entries {
		if e.RecordID == recordID {
			return e, true
		}
	}
	return types.RetrievalOutcome{}, false
}

// WithStatus returns the entries whose status is one of statuses, in
// ledger order.
func (l *Ledger) WithStatus(statuses ...types.Status) []types.RetrievalOutcome {
	want := make(map[types.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []types.RetrievalOutcome
	for _, e := range l.Entries {
		if want[e.Status] {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the per-entry invariants: a source is recorded iff the
// entry was downloaded, and a download wrote at least one byte.
func (l *Ledger) Validate() error {
	for i, e := range l.Entries {
		downloaded := e.Status == types.StatusDownloaded
		if downloaded != (e.SourceUsed != "" && e.SourceUsed != types.SourceNone) {
			return fmt.Errorf("entry %d (%s): source %q inconsistent with status %s", i, e.RecordID, e.SourceUsed, e.Status)
		}
		if downloaded && e.BytesWritten <= 0 {
			return fmt.Errorf("entry %d (%s): downloaded with %d bytes", i, e.RecordID, e.BytesWritten)
		}
	}
	return nil
}

// Summarize aggregates entries.
func Summarize(entries []types.RetrievalOutcome) Summary {
	s := Summary{
		Total:    len(entries),
		ByStatus: make(map[types.Status]int),
		BySource: make(map[types.Source]int),
	}
	for _, e := range entries {
		s.ByStatus[e.Status]++
		switch {
		case e.Status == types.StatusDownloaded:
			s.BySource[e.SourceUsed]++
			s.TotalBytes += e.BytesWritten
		case e.Status == types.StatusResolutionFailed:
			s.NotFound++
		case e.Status.Undownloadable():
			s.Undownloadable++
		}
	}
	return s
}
