// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/paperfetch/pkg/types"
)

const (
	maxIDRunes    = 64
	maxTitleRunes = 40
)

// FileName returns the deterministic file name for rec:
// "{identifier}_{title fragment}.pdf". Both parts are reduced to letters,
// digits, '.', '-' and '_', with runs of anything else collapsed to '_'.
func FileName(rec types.Record) string {
	id := sanitize(rec.Identifier, maxIDRunes)
	if id == "" {
		id = "record"
	}
	title := sanitize(rec.Title, maxTitleRunes)
	if title == "" {
		return id + ".pdf"
	}
	return id + "_" + title + ".pdf"
}

// DestPath joins dir and FileName(rec).
func DestPath(dir string, rec types.Record) string {
	return filepath.Join(dir, FileName(rec))
}

func sanitize(s string, maxRunes int) string {
	var b strings.Builder
	count := 0
	pendingSep := false
	for _, r := range strings.TrimSpace(s) {
		if count >= maxRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' {
			if pendingSep && count > 0 {
				b.WriteByte('_')
				count++
				if count >= maxRunes {
					break
				}
			}
			pendingSep = false
			b.WriteRune(r)
			count++
			continue
		}
		pendingSep = true
	}
	return strings.Trim(b.String(), "._-")
}
