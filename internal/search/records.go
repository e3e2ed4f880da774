// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// RecordFile is the on-disk hand-off between search and fetch. It can
// also be written by hand: only Records is required.
type RecordFile struct {
	Query   QueryParams    `yaml:"query,omitempty"`
	Records []types.Record `yaml:"records"`
	Summary RecordSummary  `yaml:"summary,omitempty"`
}

// QueryParams stores the query in a serializable form.
type QueryParams struct {
	Term     string `yaml:"term,omitempty"`
	FromYear int    `yaml:"from_year,omitempty"`
	ToYear   int    `yaml:"to_year,omitempty"`
}

// RecordSummary stores result statistics and a timestamp.
type RecordSummary struct {
	Total     int       `yaml:"total"`
	Matches   int       `yaml:"matches"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteRecordFile saves the query and its records to a YAML file.
func WriteRecordFile(path string, q Query, out Output) error {
	rf := RecordFile{
		Query: QueryParams{
			Term:     q.Term,
			FromYear: q.FromYear,
			ToYear:   q.ToYear,
		},
		Records: out.Records,
		Summary: RecordSummary{
			Total:     len(out.Records),
			Matches:   out.Matches,
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling records file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRecordFile loads a records file. Records without an identifier are
// rejected, since nothing downstream could name them.
func ReadRecordFile(path string) (*RecordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}
	var rf RecordFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing records file: %w", err)
	}
	for i, r := range rf.Records {
		if strings.TrimSpace(r.Identifier) == "" {
			return nil, fmt.Errorf("records file %s: record %d has no identifier", path, i+1)
		}
	}
	return &rf, nil
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() Query {
	return Query{Term: p.Term, FromYear: p.FromYear, ToYear: p.ToYear}
}

// RecordsFromIDs builds bare records for identifiers given on the command
// line. Such records have no title, so only identifier-keyed sources can
// resolve them.
func RecordsFromIDs(ids []string) []types.Record {
	var recs []types.Record
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recs = append(recs, types.Record{Identifier: id})
	}
	return recs
}

// Filter keeps the records whose identifiers are in ids, in file order.
// An empty ids keeps every record.
func Filter(recs []types.Record, ids []string) []types.Record {
	if len(ids) == 0 {
		return recs
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = true
	}
	var out []types.Record
	for _, r := range recs {
		if want[r.Identifier] {
			out = append(out, r)
		}
	}
	return out
}
