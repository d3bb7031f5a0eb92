package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "docs", cfg.DocsDir)
	assert.Equal(t, "vectorstore", cfg.IndexDir)
	assert.Equal(t, "security_knowledge", cfg.Collection)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, "mmr", cfg.SearchType)
	assert.Equal(t, 8, cfg.SearchK)
	assert.Equal(t, 16, cfg.SearchFetchK)
	assert.InDelta(t, 0.7, cfg.SearchLambda, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ReindexInterval)
	assert.Equal(t, "gpt-4", cfg.AnalysisModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.FallbackModel)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RISKGUARD_PORT", "9090")
	t.Setenv("RISKGUARD_DEBUG", "true")
	t.Setenv("RISKGUARD_DOCS_DIR", "/srv/corpus")
	t.Setenv("RISKGUARD_CHUNK_SIZE", "500")
	t.Setenv("RISKGUARD_SEARCH_TYPE", "similarity")
	t.Setenv("RISKGUARD_REINDEX_INTERVAL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/srv/corpus", cfg.DocsDir)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, "similarity", cfg.SearchType)
	assert.Equal(t, time.Hour, cfg.ReindexInterval)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("RISKGUARD_CHUNK_SIZE", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestFeatureFlags(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasOpenAI())
	assert.False(t, cfg.HasS3())
	assert.False(t, cfg.HasPostgres())

	cfg.OpenAIAPIKey = "sk-test"
	assert.True(t, cfg.HasOpenAI())

	cfg.DatabaseURL = "postgres://localhost/riskguard"
	assert.True(t, cfg.HasPostgres())

	cfg.S3Endpoint = "http://localhost:9000"
	cfg.S3AccessKey = "access"
	assert.False(t, cfg.HasS3())
	cfg.S3SecretKey = "secret"
	assert.True(t, cfg.HasS3())
}
