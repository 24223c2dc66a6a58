// Package common provides shared configuration, logging, and identifier
// utilities used across every datacat package.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Cache       CacheConfig     `toml:"cache"`
	Catalogue   CatalogueConfig `toml:"catalogue"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Embeddings  EmbeddingConfig `toml:"embeddings"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Search      SearchConfig    `toml:"search"`
	Rerank      RerankConfig    `toml:"rerank"`
	RAG         RAGConfig       `toml:"rag"`
	Claude      ClaudeConfig    `toml:"claude"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig carries the listen settings for the (out-of-scope) HTTP
// boundary; kept here only so a single config file can seed both this
// module and the boundary that wraps it.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig contains document-store configuration.
type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig configures the canonical repository.
type SQLiteConfig struct {
	Path            string `toml:"path"`              // database file path
	ResetOnStartup  bool   `toml:"reset_on_startup"`  // development only
	Environment     string `toml:"-"`                 // populated from Config.Environment at load time
}

// CacheConfig configures the on-disk content-addressed resource cache.
type CacheConfig struct {
	Dir string        `toml:"dir"` // cache root directory
	TTL time.Duration `toml:"ttl"` // 0 = no expiry
}

// CatalogueConfig configures the remote catalogue client.
type CatalogueConfig struct {
	BaseURL             string        `toml:"base_url"`               // e.g. https://catalogue.example.org
	SupportingDocsBase  string        `toml:"supporting_docs_base"`   // e.g. https://catalogue.example.org/sd
	Concurrency         int           `toml:"concurrency"`            // semaphore width, default 3
	RequestDelay        time.Duration `toml:"request_delay"`          // default 300ms
	RequestTimeout      time.Duration `toml:"request_timeout"`        // default 30s
	MaxAttempts         int           `toml:"max_attempts"`           // default 3
	InitialBackoff      time.Duration `toml:"initial_backoff"`        // default 1s
	MaxBackoff          time.Duration `toml:"max_backoff"`            // default 30s
	RequestsPerSecond   float64       `toml:"requests_per_second"`    // per-host rate limit, default 5.0
	BasicAuthUser       string        `toml:"basic_auth_user"`
	BasicAuthPassword   string        `toml:"basic_auth_password"`
}

// PipelineConfig configures the ETL pipeline.
type PipelineConfig struct {
	BatchSize      int    `toml:"batch_size"`      // default 20
	StopOnError    bool   `toml:"stop_on_error"`   // default false
	CheckpointPath string `toml:"checkpoint_path"` // empty disables resumable checkpointing
	Schedule       string `toml:"schedule"`        // optional cron expression for recurring runs
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	BaseURL   string `toml:"base_url"`  // Ollama-compatible endpoint
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
	BatchSize int    `toml:"batch_size"` // default 32
}

// VectorStoreConfig configures the qdrant-backed ANN index.
type VectorStoreConfig struct {
	Address    string `toml:"address"`    // gRPC address, e.g. "localhost:6334"
	Collection string `toml:"collection"` // qdrant collection name
}

// SearchConfig configures hybrid search.
type SearchConfig struct {
	SemanticLimit int     `toml:"semantic_limit"` // default 50
	KeywordLimit  int     `toml:"keyword_limit"`  // default 50
	RRFK          float64 `toml:"rrf_k"`          // default 60
	ExactBoost    float64 `toml:"exact_boost"`    // default 10.0
	Advanced      bool    `toml:"advanced"`       // enable the rerank overlay (no query expansion is performed)
}

// RerankConfig configures the optional cross-encoder rerank stage.
type RerankConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	TopN    int    `toml:"top_n"` // default 10
}

// RAGConfig configures the retrieval-augmented answer orchestrator.
type RAGConfig struct {
	TopK          int     `toml:"top_k"`          // default 5
	MinRelevance  float64 `toml:"min_relevance"`  // default 0.0
	MaxChars      int     `toml:"max_chars"`      // default 12000
}

// ClaudeConfig configures the optional Anthropic-backed RAG generator.
type ClaudeConfig struct {
	APIKey    string  `toml:"api_key"`
	Model     string  `toml:"model"`
	Timeout   string  `toml:"timeout"`
	MaxTokens int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level      string   `toml:"level"`       // debug|info|warn|error
	Format     string   `toml:"format"`      // text|json
	Output     []string `toml:"output"`      // stdout, file
	TimeFormat string   `toml:"time_format"`
}

// NewDefaultConfig returns a configuration with production-safe defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path: "./data/datacat.db",
			},
		},
		Cache: CacheConfig{
			Dir: "./data/cache",
			TTL: 24 * time.Hour,
		},
		Catalogue: CatalogueConfig{
			Concurrency:    3,
			RequestDelay:   300 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        30 * time.Second,
			RequestsPerSecond: 5.0,
		},
		Pipeline: PipelineConfig{
			BatchSize:   20,
			StopOnError: false,
		},
		Embeddings: EmbeddingConfig{
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			Dimension: 768,
			BatchSize: 32,
		},
		VectorStore: VectorStoreConfig{
			Address:    "localhost:6334",
			Collection: "datasets",
		},
		Search: SearchConfig{
			SemanticLimit: 50,
			KeywordLimit:  50,
			RRFK:          60,
			ExactBoost:    10.0,
			Advanced:      false,
		},
		Rerank: RerankConfig{
			Enabled: false,
			TopN:    10,
		},
		RAG: RAGConfig{
			TopK:         5,
			MinRelevance: 0.0,
			MaxChars:     12000,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			Timeout:     "5m",
			MaxTokens:   8192,
			Temperature: 0.3,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFiles loads configuration from multiple TOML files with priority
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// ones; environment variables override every file.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	config.Storage.SQLite.Environment = config.Environment

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DATACAT_ENV"); env != "" {
		config.Environment = env
	}
	if v := os.Getenv("DATACAT_STORAGE_PATH"); v != "" {
		config.Storage.SQLite.Path = v
	}
	if v := os.Getenv("DATACAT_CACHE_DIR"); v != "" {
		config.Cache.Dir = v
	}
	if v := os.Getenv("DATACAT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Cache.TTL = d
		}
	}
	if v := os.Getenv("DATACAT_CATALOGUE_BASE_URL"); v != "" {
		config.Catalogue.BaseURL = v
	}
	if v := os.Getenv("DATACAT_EMBEDDINGS_MODEL"); v != "" {
		config.Embeddings.Model = v
	}
	if v := os.Getenv("DATACAT_VECTOR_STORE_ADDRESS"); v != "" {
		config.VectorStore.Address = v
	}
	if v := os.Getenv("DATACAT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("DATACAT_LOG_OUTPUT"); v != "" {
		outputs := []string{}
		for _, o := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("DATACAT_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Server.Port = p
		}
	}
}

// ApplyFlagOverrides applies command-line flag values over everything else.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidatePipelineSchedule validates a cron schedule expression.
func ValidatePipelineSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
