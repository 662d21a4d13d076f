package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 300, cfg.Breaker.RecoveryTimeoutSeconds)
	assert.InDelta(t, 0.85, cfg.Matching.SimilarityThreshold, 0.0001)
	assert.Equal(t, 1900, cfg.Matching.YearFloor)

	wiki, ok := cfg.Sources["wikipedia"]
	require.True(t, ok)
	assert.Equal(t, "https://en.wikipedia.org", wiki.BaseURL)
	assert.Equal(t, 60, wiki.RequestsPerMinute)

	pfdb, ok := cfg.Sources["profightdb"]
	require.True(t, ok)
	assert.True(t, pfdb.InsecureSkipVerify)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
http:
  timeout_seconds: 5
matching:
  similarity_threshold: 0.9
  per_kind_threshold:
    venue: 0.75
sources:
  cagematch:
    crawl_delay_seconds: 300
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HTTP.TimeoutSeconds)
	assert.InDelta(t, 300.0, cfg.Sources["cagematch"].CrawlDelaySeconds, 0.0001)
	assert.InDelta(t, 0.75, cfg.Matching.KindThreshold("venue"), 0.0001)
	assert.InDelta(t, 0.9, cfg.Matching.KindThreshold("wrestler"), 0.0001)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.HTTP.TimeoutSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg, _ = Load("")
	cfg.Matching.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg, _ = Load("")
	src := cfg.Sources["wikipedia"]
	src.RequestsPerDay = 0
	cfg.Sources["wikipedia"] = src
	assert.Error(t, cfg.Validate())
}
