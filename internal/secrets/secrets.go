// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Recognized key files.
const (
	// NCBIAPIKey raises the E-utilities rate limit from 3 to 10 requests
	// per second.
	NCBIAPIKey = "ncbi-api-key"
	// ContactEmail is sent to NCBI with every request.
	ContactEmail = "contact-email"
)

// DefaultDir is where Load looks when no directory is configured.
const DefaultDir = ".secrets"

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply copies known secrets into cfg. Values already set in cfg (from the
// config file, environment or flags) win over secret files.
func Apply(secrets map[string]string, cfg *types.PipelineConfig) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.Resolve.NCBIAPIKey, NCBIAPIKey)
	fill(&cfg.Search.APIKey, NCBIAPIKey)
	fill(&cfg.Resolve.Email, ContactEmail)
	fill(&cfg.Search.Email, ContactEmail)
}
