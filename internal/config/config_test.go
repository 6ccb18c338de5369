package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadDefault()
	require.NoError(t, err)

	assert.Equal(t, "callguard", cfg.App.Name)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, KeywordSourceFile, cfg.Keywords.Source)
	assert.True(t, cfg.Classifier.Enabled)
	assert.Equal(t, "simulated", cfg.STT.Provider)
	assert.Equal(t, 10*time.Minute, cfg.Cache.AnalysisTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  http_port: 8181
keywords:
  path: /tmp/kw.txt
classifier:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CALLGUARD_STT_PROVIDER", "whisper")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.HTTPPort)
	assert.Equal(t, "/tmp/kw.txt", cfg.Keywords.Path)
	assert.False(t, cfg.Classifier.Enabled)
	assert.Equal(t, "whisper", cfg.STT.Provider)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Keywords: KeywordsConfig{Source: KeywordSourcePostgres},
		STT:      STTConfig{Provider: "simulated"},
	}
	assert.Error(t, cfg.Validate(), "postgres keywords without database")

	cfg.Database.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.STT.Provider = "google"
	assert.Error(t, cfg.Validate())
}
