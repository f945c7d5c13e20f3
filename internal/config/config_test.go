package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SMARTLEDGER_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Analytics.Source)
	assert.Equal(t, "substring", cfg.Analytics.Similarity)
	assert.Equal(t, 5000, cfg.Analytics.TrainingLimit)
	assert.Equal(t, 2, cfg.Analytics.LevenshteinMaxDistance)
	assert.False(t, cfg.Gemini.Enabled)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/tmp/ledger-test.db"

[analytics]
similarity = "levenshtein"
training_limit = 100

[storage]
bucket = "reports-bucket"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("SMARTLEDGER_CONFIG", path)
	t.Setenv("SMARTLEDGER_SERVER_PORT", "9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ledger-test.db", cfg.Database.Path)
	assert.Equal(t, "levenshtein", cfg.Analytics.Similarity)
	assert.Equal(t, 100, cfg.Analytics.TrainingLimit)
	assert.Equal(t, "reports-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("SMARTLEDGER_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Analytics: AnalyticsConfig{Source: "sqlite", Similarity: "substring", TrainingLimit: 10}}
	require.NoError(t, base.Validate())

	bq := base
	bq.Analytics.Source = "bigquery"
	assert.Error(t, bq.Validate(), "bigquery without project")
	bq.BigQuery.ProjectID = "proj"
	assert.NoError(t, bq.Validate())

	bad := base
	bad.Analytics.Similarity = "semantic"
	assert.Error(t, bad.Validate())

	zero := base
	zero.Analytics.TrainingLimit = 0
	assert.Error(t, zero.Validate())
}
