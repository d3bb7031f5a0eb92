package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Knowledge base layout
	DocsDir    string `envconfig:"DOCS_DIR" default:"docs"`
	IndexDir   string `envconfig:"INDEX_DIR" default:"vectorstore"`
	Collection string `envconfig:"COLLECTION" default:"security_knowledge"`

	// Optional pgvector-backed index. When set, embedding records persist
	// to Postgres instead of the snapshot directory.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Optional S3 corpus sync, pulled into DocsDir before indexing.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"riskguard-corpus"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Chunking
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	// Retrieval
	SearchType      string        `envconfig:"SEARCH_TYPE" default:"mmr"`
	SearchK         int           `envconfig:"SEARCH_K" default:"8"`
	SearchFetchK    int           `envconfig:"SEARCH_FETCH_K" default:"16"`
	SearchLambda    float64       `envconfig:"SEARCH_LAMBDA" default:"0.7"`
	ScoreThreshold  float64       `envconfig:"SCORE_THRESHOLD" default:"0.3"`
	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	ReindexInterval time.Duration `envconfig:"REINDEX_INTERVAL" default:"5m"`

	// Analysis models
	AnalysisModel string `envconfig:"ANALYSIS_MODEL" default:"gpt-4"`
	FallbackModel string `envconfig:"FALLBACK_MODEL" default:"gpt-3.5-turbo"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RISKGUARD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasPostgres() bool {
	return c.DatabaseURL != ""
}
