package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/internal/secrets"
)

func TestPreloadSecretsReportsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, secrets.NCBIAPIKey), []byte("abc\n"), 0o644))
	// A dangling link cannot be read, even by root.
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, secrets.ContactEmail)))

	viper.Set("secrets_dir", dir)
	t.Cleanup(func() {
		viper.Set("secrets_dir", secrets.DefaultDir)
		loadedSecrets = nil
	})

	var stderr bytes.Buffer
	require.NoError(t, preloadSecrets(&stderr))

	assert.Equal(t, map[string]string{secrets.NCBIAPIKey: "abc"}, loadedSecrets)
	assert.Contains(t, stderr.String(), "could not read secret")
	assert.Contains(t, stderr.String(), secrets.ContactEmail)
	assert.Contains(t, stderr.String(), "Loaded secrets: [ncbi-api-key]")
}
