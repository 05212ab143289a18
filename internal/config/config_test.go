package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/transcript"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), fileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, `{
		"roots": {"claude-code": "/data/claude"},
		"pricing_path": "/data/rates.json",
		"limit": 50
	}`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/claude", cfg.Root(transcript.SourceClaudeCode))
	assert.Empty(t, cfg.Root(transcript.SourceCodex))
	assert.Equal(t, "/data/rates.json", cfg.PricingPath)
	assert.Equal(t, 50, cfg.Limit)
}

func TestLoadFromMissingFileIsZero(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestLoadFromMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"limit": `)
	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadFromRejectsUnknownSource(t *testing.T) {
	path := writeConfig(t, `{"roots": {"gemini": "/data/gemini"}}`)
	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini")
}
