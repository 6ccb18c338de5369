package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callguard/internal/config"
	"callguard/internal/domain/services/ai"
	"callguard/pkg/logger"
)

func TestKeywordSourceFor(t *testing.T) {
	src, err := KeywordSourceFor(config.KeywordsConfig{Source: config.KeywordSourceFile, Path: "kw.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ai.FileKeywordSource{Path: "kw.txt"}, src)

	_, err = KeywordSourceFor(config.KeywordsConfig{Source: config.KeywordSourcePostgres}, nil)
	assert.Error(t, err)
}

func TestBuildAnalyzerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kw.txt")
	require.NoError(t, os.WriteFile(path, []byte("# list\nGift Card\nlottery\n"), 0o600))

	cfg := &config.Config{Keywords: config.KeywordsConfig{Source: config.KeywordSourceFile, Path: path}}
	a := BuildAnalyzer(context.Background(), cfg, nil, logger.NewNop())

	assert.Equal(t, []string{"gift card", "lottery"}, a.Keywords().Terms())
	assert.False(t, a.ClassifierAvailable())
}

func TestBuildAnalyzerDefaults(t *testing.T) {
	cfg := &config.Config{
		Keywords:   config.KeywordsConfig{Source: config.KeywordSourcePostgres},
		Classifier: config.ClassifierConfig{Enabled: true, Iterations: 200},
	}
	a := BuildAnalyzer(context.Background(), cfg, nil, logger.NewNop())

	assert.Equal(t, ai.DefaultKeywords, a.Keywords().Terms())
	assert.True(t, a.ClassifierAvailable())
}
