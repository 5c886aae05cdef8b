// Package config loads engine configuration from config.yaml with
// environment variable overrides. Secrets come only from the
// environment, never from the YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root engine configuration.
type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	AI        AIConfig        `yaml:"ai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	History   HistoryConfig   `yaml:"history"`
	Image     ImageConfig     `yaml:"image"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port int    `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
}

// CatalogConfig configures the product catalog database.
type CatalogConfig struct {
	// Driver selects the SQL dialect: "sqlite" or "postgres".
	Driver string `yaml:"driver" env:"CATALOG_DRIVER" env-default:"sqlite"`
	// Path is the sqlite database file (sqlite driver only).
	Path string `yaml:"path" env:"CATALOG_PATH" env-default:"data/coffee_shop.db"`
	// DSN is the postgres connection string (postgres driver only).
	DSN                 string `yaml:"-" env:"CATALOG_DSN"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds" env:"CATALOG_QUERY_TIMEOUT_SECONDS" env-default:"15"`
	// ReadOnly opens the connection with a database-level read-only
	// guard in addition to statement validation.
	ReadOnly         bool   `yaml:"read_only" env:"CATALOG_READ_ONLY" env-default:"true"`
	TranslationsPath string `yaml:"translations_path" env:"CATALOG_TRANSLATIONS_PATH" env-default:"translations.yaml"`
}

// AIConfig configures the chat and embedding model providers.
type AIConfig struct {
	// Provider selects the chat backend: "openai" or "anthropic".
	Provider    string  `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"AI_ENDPOINT"`
	Model       string  `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string  `yaml:"-" env:"AI_API_KEY"`
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.1"`
	// RequestTimeoutSeconds bounds a single model call, retries
	// included. An expired call falls back like any other failure.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"AI_REQUEST_TIMEOUT_SECONDS" env-default:"60"`

	// Embeddings always go through an OpenAI-compatible endpoint,
	// regardless of the chat provider.
	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"AI_EMBEDDING_ENDPOINT"`
	EmbeddingModel    string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingAPIKey   string `yaml:"-" env:"AI_EMBEDDING_API_KEY"`
}

// RetrievalConfig configures the vector indexes and hybrid fusion.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" env:"RETRIEVAL_TOP_K" env-default:"3"`
	// Alpha weights image similarity against text similarity during
	// fusion. 1.0 trusts the image only, 0.0 trusts text only.
	Alpha float64 `yaml:"alpha" env:"RETRIEVAL_ALPHA" env-default:"0.5"`
	// Normalization selects the score normalization strategy:
	// "softmax", "minmax" or "zscore".
	Normalization        string `yaml:"normalization" env:"RETRIEVAL_NORMALIZATION" env-default:"softmax"`
	RowIndexPath         string `yaml:"row_index_path" env:"RETRIEVAL_ROW_INDEX_PATH" env-default:"data/index/rows"`
	DescriptionIndexPath string `yaml:"description_index_path" env:"RETRIEVAL_DESCRIPTION_INDEX_PATH" env-default:"data/index/descriptions"`
	ImageIndexPath       string `yaml:"image_index_path" env:"RETRIEVAL_IMAGE_INDEX_PATH" env-default:"data/index/images"`
	ImageFeatureDim      int    `yaml:"image_feature_dim" env:"RETRIEVAL_IMAGE_FEATURE_DIM" env-default:"768"`
}

// HistoryConfig configures the per-user chat history store.
type HistoryConfig struct {
	MaxPerUser int `yaml:"max_per_user" env:"HISTORY_MAX_PER_USER" env-default:"3"`
	// Path is an optional JSON snapshot file. Empty disables persistence.
	Path string `yaml:"path" env:"HISTORY_PATH"`
}

// ImageConfig configures product image fetching and feature extraction.
type ImageConfig struct {
	FeatureEndpoint     string `yaml:"feature_endpoint" env:"IMAGE_FEATURE_ENDPOINT"`
	BatchSize           int    `yaml:"batch_size" env:"IMAGE_BATCH_SIZE" env-default:"16"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds" env:"IMAGE_FETCH_TIMEOUT_SECONDS" env-default:"10"`
	// MaxErrorsPerSource disables a failing image host for the rest of
	// an indexing run once it has produced this many errors.
	MaxErrorsPerSource int `yaml:"max_errors_per_source" env:"IMAGE_MAX_ERRORS_PER_SOURCE" env-default:"3"`
}

// Load reads configuration from the given YAML file, applying
// environment overrides, and validates the result. If the file does not
// exist, configuration comes from environment variables and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that tag defaults cannot express.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("catalog.driver must be sqlite or postgres, got %q", c.Catalog.Driver)
	}
	if c.Catalog.Driver == "sqlite" && c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required for the sqlite driver")
	}
	if c.Catalog.Driver == "postgres" && c.Catalog.DSN == "" {
		return fmt.Errorf("CATALOG_DSN is required for the postgres driver")
	}
	if c.Catalog.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("catalog.query_timeout_seconds must be positive, got %d", c.Catalog.QueryTimeoutSeconds)
	}

	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("ai.provider must be openai or anthropic, got %q", c.AI.Provider)
	}
	if c.AI.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("ai.request_timeout_seconds must be positive, got %d", c.AI.RequestTimeoutSeconds)
	}

	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.Alpha < 0 || c.Retrieval.Alpha > 1 {
		return fmt.Errorf("retrieval.alpha must be within [0, 1], got %g", c.Retrieval.Alpha)
	}
	switch c.Retrieval.Normalization {
	case "softmax", "minmax", "zscore":
	default:
		return fmt.Errorf("retrieval.normalization must be softmax, minmax or zscore, got %q", c.Retrieval.Normalization)
	}
	if c.Retrieval.ImageFeatureDim < 1 {
		return fmt.Errorf("retrieval.image_feature_dim must be positive, got %d", c.Retrieval.ImageFeatureDim)
	}

	if c.History.MaxPerUser < 1 {
		return fmt.Errorf("history.max_per_user must be at least 1, got %d", c.History.MaxPerUser)
	}

	if c.Image.BatchSize < 1 {
		return fmt.Errorf("image.batch_size must be at least 1, got %d", c.Image.BatchSize)
	}
	if c.Image.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("image.fetch_timeout_seconds must be positive, got %d", c.Image.FetchTimeoutSeconds)
	}
	if c.Image.MaxErrorsPerSource < 1 {
		return fmt.Errorf("image.max_errors_per_source must be at least 1, got %d", c.Image.MaxErrorsPerSource)
	}

	return nil
}
