package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

// Config is loaded once at startup and treated as immutable afterwards.
// Core services receive the values they need at construction time and never
// read the environment themselves.
type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"ragserver"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"ragserver"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey    string  `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel  string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingDim    int     `envconfig:"EMBEDDING_DIM" default:"768"`
	GenerationModel string  `envconfig:"GENERATION_MODEL" default:"gemini-1.5-flash"`
	Temperature     float32 `envconfig:"GENERATION_TEMPERATURE" default:"0.1"`
	MaxOutputTokens int     `envconfig:"GENERATION_MAX_TOKENS" default:"1024"`

	MaxChunkChars        int     `envconfig:"MAX_CHUNK_CHARS" default:"1200"`
	SearchTopK           int     `envconfig:"SEARCH_TOP_K" default:"5"`
	MinRelevance         float64 `envconfig:"MIN_RELEVANCE" default:"0.0"`
	MaxQueryChars        int     `envconfig:"MAX_QUERY_CHARS" default:"1000"`
	PromptContextBudget  int     `envconfig:"PROMPT_CONTEXT_BUDGET" default:"6000"`
	OverlapThreshold     float64 `envconfig:"GROUNDING_OVERLAP_THRESHOLD" default:"0.3"`
	StrictGrounding      bool    `envconfig:"STRICT_GROUNDING" default:"false"`
	IngestionConcurrency int     `envconfig:"INGESTION_CONCURRENCY" default:"8"`
	FetchTimeoutSeconds  int     `envconfig:"FETCH_TIMEOUT_SECONDS" default:"30"`
	RetryAttempts        int     `envconfig:"RETRY_ATTEMPTS" default:"3"`
	UserAgent            string  `envconfig:"INGEST_USER_AGENT" default:"ragserver/1.0"`

	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	EnableAPI          bool `envconfig:"ENABLE_API" default:"true"`
	EnableIngestWorker bool `envconfig:"ENABLE_INGEST_WORKER" default:"true"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIM must be positive", ErrMissingRequired)
	}
	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: MAX_CHUNK_CHARS must be positive", ErrMissingRequired)
	}
	return nil
}
