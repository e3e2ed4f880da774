// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bundle packages downloaded documents into a single zip archive
// for bulk delivery. Which documents go in is the caller's choice; the
// package only validates and archives the paths it is given.
package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/pkg/types"
)

var (
	// ErrEmptySelection is returned when no paths are given.
	ErrEmptySelection = errors.New("empty selection")

	// ErrMissingFile is matched by every *MissingFileError.
	ErrMissingFile = errors.New("missing file")
)

// MissingFileError reports a selected path that does not exist.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing file %s: %v", e.Path, e.Err)
}

// Is makes errors.Is(err, ErrMissingFile) succeed.
func (e *MissingFileError) Is(target error) bool { return target == ErrMissingFile }

func (e *MissingFileError) Unwrap() error { return e.Err }

// Bundle returns a zip archive holding the files at paths.
func Bundle(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, paths); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams a zip archive of paths to w. Every path is checked before
// anything is written, so a missing file leaves w untouched. Duplicate
// paths are archived once; entries are named by base name, and colliding
// base names get a numeric suffix.
func Write(w io.Writer, paths []string) error {
	files := dedupe(paths)
	if len(files) == 0 {
		return ErrEmptySelection
	}

	for _, p := range files {
		info, err := os.Stat(p)
		if err != nil {
			return &MissingFileError{Path: p, Err: err}
		}
		if !info.Mode().IsRegular() {
			return &MissingFileError{Path: p, Err: fmt.Errorf("not a regular file")}
		}
	}

	zw := zip.NewWriter(w)
	names := entryNames(files)
	for i, p := range files {
		if err := addFile(zw, p, names[i]); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return &MissingFileError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("building header for %s: %w", path, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	return nil
}

// dedupe drops empty and repeated paths, comparing cleaned forms and
// keeping first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}

// entryNames assigns each path a unique archive name: its base name, or
// "stem-N.ext" for the Nth repeat of a base name.
func entryNames(paths []string) []string {
	used := make(map[string]bool, len(paths))
	names := make([]string, len(paths))
	for i, p := range paths {
		base := filepath.Base(p)
		name := base
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		for n := 2; used[name]; n++ {
			name = stem + "-" + strconv.Itoa(n) + ext
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// SelectDownloaded maps the caller's selected record IDs to the local
// paths recorded in l. Only Downloaded and Skipped entries have files;
// other selected IDs are returned as unavailable. An empty ids selects
// every entry with a file.
func SelectDownloaded(l *ledger.Ledger, ids []string) (paths, unavailable []string) {
	hasFile := func(e types.RetrievalOutcome) bool {
		return (e.Status == types.StatusDownloaded || e.Status == types.StatusSkipped) && e.LocalPath != ""
	}

	if len(ids) == 0 {
		for _, e := range l.Entries {
			if hasFile(e) {
				paths = append(paths, e.LocalPath)
			}
		}
		return paths, nil
	}

	for _, id := range ids {
		e, ok := l.Entry(id)
		if !ok || !hasFile(e) {
			unavailable = append(unavailable, id)
			continue
		}
		paths = append(paths, e.LocalPath)
	}
	return paths, unavailable
}
