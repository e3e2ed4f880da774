// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Format names a ledger rendering.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts text, yaml (or yml) and json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown ledger format %q (want text, yaml or json)", s)
}

// Write renders l to w in format f.
func Write(w io.Writer, l *Ledger, f Format) error {
	switch f {
	case FormatYAML:
		return WriteYAML(w, l)
	case FormatJSON:
		return WriteJSON(w, l)
	case FormatText, "":
		return WriteText(w, l)
	}
	return fmt.Errorf("unknown ledger format %q", f)
}

// WriteYAML renders l as YAML.
func WriteYAML(w io.Writer, l *Ledger) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteJSON renders l as indented JSON.
func WriteJSON(w io.Writer, l *Ledger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// WriteFile writes l to path, choosing the format from the extension
// (.json, otherwise YAML).
func WriteFile(path string, l *Ledger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger file: %w", err)
	}
	format := FormatYAML
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		format = FormatJSON
	}
	if err := Write(f, l, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a ledger previously written by WriteFile. The returned
// ledger is frozen.
func ReadFile(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	unmarshal := yaml.Unmarshal
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		unmarshal = json.Unmarshal
	}
	var l Ledger
	if err := unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing ledger file %s: %w", path, err)
	}
	l.frozen = true
	return &l, nil
}

// Remediation hints printed under the two failure groups.
const (
	notFoundHint       = "No open copy was located. Try the publisher via the DOI, a library subscription, or interlibrary loan."
	undownloadableHint = "A copy was located but could not be saved. Open the URL in a browser; author copies and some repositories require a login."
)

// WriteText renders the human-readable run report. Records that no source
// could locate are listed separately from records that were located but
// could not be downloaded, since the remedies differ.
func WriteText(w io.Writer, l *Ledger) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s", l.RunID)
	if !l.StartedAt.IsZero() {
		fmt.Fprintf(&b, " started %s", l.StartedAt.UTC().Format(time.RFC3339))
	}
	if d := l.Duration(); d > 0 {
		fmt.Fprintf(&b, " (%s)", d.Round(time.Millisecond))
	}
	b.WriteString("\n")

	if got := l.WithStatus(types.StatusDownloaded); len(got) > 0 {
		fmt.Fprintf(&b, "\nDownloaded (%d):\n", len(got))
		for _, e := range got {
			fmt.Fprintf(&b, "  %-12s %-16s %10s  %s\n", e.RecordID, e.SourceUsed.Label(), formatBytes(e.BytesWritten), e.LocalPath)
			if e.AccessType == types.AccessAuthorCopy {
				b.WriteString("               author copy: verify it is the published version\n")
			}
		}
	}

	if got := l.WithStatus(types.StatusSkipped); len(got) > 0 {
		fmt.Fprintf(&b, "\nAlready present, skipped (%d):\n", len(got))
		for _, e := range got {
			fmt.Fprintf(&b, "  %-12s %s\n", e.RecordID, e.LocalPath)
		}
	}

	if got := l.WithStatus(types.StatusResolutionFailed); len(got) > 0 {
		fmt.Fprintf(&b, "\nNot found in any source (%d):\n", len(got))
		for _, e := range got {
			fmt.Fprintf(&b, "  %-12s %s\n", e.RecordID, e.Title)
		}
		fmt.Fprintf(&b, "  hint: %s\n", notFoundHint)
	}

	if got := l.WithStatus(types.StatusFetchFailed, types.StatusValidationFailed); len(got) > 0 {
		fmt.Fprintf(&b, "\nFound but could not be downloaded (%d):\n", len(got))
		for _, e := range got {
			fmt.Fprintf(&b, "  %-12s %-16s %s\n", e.RecordID, e.Status, e.URL)
			if e.ErrorDetail != "" {
				fmt.Fprintf(&b, "               %s\n", e.ErrorDetail)
			}
		}
		fmt.Fprintf(&b, "  hint: %s\n", undownloadableHint)
	}

	if got := l.WithStatus(types.StatusCancelled); len(got) > 0 {
		fmt.Fprintf(&b, "\nCancelled (%d):\n", len(got))
		for _, e := range got {
			fmt.Fprintf(&b, "  %-12s %s\n", e.RecordID, e.ErrorDetail)
		}
	}

	s := l.Summary
	fmt.Fprintf(&b, "\n%d record(s): %d downloaded, %d skipped, %d not found, %d undownloadable, %d cancelled; %s written\n",
		s.Total,
		s.ByStatus[types.StatusDownloaded],
		s.ByStatus[types.StatusSkipped],
		s.NotFound,
		s.Undownloadable,
		s.ByStatus[types.StatusCancelled],
		formatBytes(s.TotalBytes))

	if len(s.BySource) > 0 {
		sources := make([]string, 0, len(s.BySource))
		for src, n := range s.BySource {
			sources = append(sources, fmt.Sprintf("%s %d", src.Label(), n))
		}
		sort.Strings(sources)
		fmt.Fprintf(&b, "By source: %s\n", strings.Join(sources, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
