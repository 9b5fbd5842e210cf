// Copyright 2026 Normindex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in IndexConfig.Backend.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// Duration decodes YAML strings like "30s" or "2m" into a duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidValue, value.Value)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidValue, raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full runtime configuration, loaded from a YAML file
// with environment variable overrides on top.
type Config struct {
	Index        IndexConfig        `yaml:"index"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Recognizer   RecognizerConfig   `yaml:"recognizer"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Quantization QuantizationConfig `yaml:"quantization"`
	Cache        CacheConfig        `yaml:"cache"`
	Ingest       IngestConfig       `yaml:"ingest"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// IndexConfig selects and configures the vector store backend.
type IndexConfig struct {
	// Backend is "badger" for embedded storage or "qdrant" for a
	// remote collection.
	Backend string `yaml:"backend"`

	// Path is the badger data directory. Ignored for qdrant.
	Path string `yaml:"path"`

	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig configures the remote qdrant backend.
type QdrantConfig struct {
	URL        string   `yaml:"url"`
	APIKey     string   `yaml:"api_key"`
	Collection string   `yaml:"collection"`
	Timeout    Duration `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	Host      string   `yaml:"host"`
	Model     string   `yaml:"model"`
	BatchSize int      `yaml:"batch_size"`
	Timeout   Duration `yaml:"timeout"`
}

// RecognizerConfig configures the optical recognition sidecar.
type RecognizerConfig struct {
	Host     string `yaml:"host"`
	Language string `yaml:"language"`
}

// ChunkingConfig tunes the chunker's splitting policy.
type ChunkingConfig struct {
	MaxTokens int `yaml:"max_tokens"`
	Overlap   int `yaml:"overlap"`
}

// QuantizationConfig tunes vector compression.
type QuantizationConfig struct {
	// Disabled skips compression entirely and stores full vectors.
	Disabled bool `yaml:"disabled"`

	// QualityFloor is the minimum acceptable average reconstruction
	// cosine. Zero means the package default.
	QualityFloor float64 `yaml:"quality_floor"`

	// Strict makes a floor violation an ingestion error instead of a
	// fallback to uncompressed storage.
	Strict bool `yaml:"strict"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	Disabled bool `yaml:"disabled"`

	// TTL bounds entry lifetime. Zero means the package default.
	TTL Duration `yaml:"ttl"`

	// MaxCost caps the in-process cache size in bytes.
	MaxCost int64 `yaml:"max_cost"`

	// Path enables a persistent badger cache tier at this directory.
	// Empty keeps the cache purely in-process.
	Path string `yaml:"path"`
}

// IngestConfig tunes ingestion throughput and retry behavior.
type IngestConfig struct {
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
	PoolSize    int `yaml:"pool_size"`

	// MaxAttempts bounds retries of transient embedding and recognition
	// failures per document.
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is the initial backoff delay between attempts.
	RetryDelay Duration `yaml:"retry_delay"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Backend: BackendBadger,
			Path:    "normindex.db",
			Qdrant: QdrantConfig{
				Collection: "normindex",
				Timeout:    Duration(30 * time.Second),
			},
		},
		Embedding: EmbeddingConfig{
			Host:      "http://localhost:11434/v1",
			Model:     "embeddinggemma",
			BatchSize: 32,
			Timeout:   Duration(30 * time.Second),
		},
		Recognizer: RecognizerConfig{
			Host:     "http://localhost:8884",
			Language: "rus+eng",
		},
		Chunking: ChunkingConfig{},
		Cache: CacheConfig{
			MaxCost: 64 << 20,
		},
		Ingest: IngestConfig{
			MaxAttempts: 3,
			RetryDelay:  Duration(500 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path, overlays environment variables, and
// validates the result. An empty path loads defaults plus environment.
// A .env file in the working directory is honored if present.
func Load(path string) (*Config, error) {
	// Missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays NORMINDEX_* environment variables. Environment wins
// over the file, which wins over defaults.
func (c *Config) applyEnv() {
	setString(&c.Index.Backend, "NORMINDEX_INDEX_BACKEND")
	setString(&c.Index.Path, "NORMINDEX_INDEX_PATH")
	setString(&c.Index.Qdrant.URL, "NORMINDEX_QDRANT_URL")
	setString(&c.Index.Qdrant.APIKey, "NORMINDEX_QDRANT_API_KEY")
	setString(&c.Index.Qdrant.Collection, "NORMINDEX_QDRANT_COLLECTION")
	setString(&c.Embedding.Host, "NORMINDEX_EMBEDDING_HOST")
	setString(&c.Embedding.Model, "NORMINDEX_EMBEDDING_MODEL")
	setString(&c.Recognizer.Host, "NORMINDEX_RECOGNIZER_HOST")
	setString(&c.Recognizer.Language, "NORMINDEX_RECOGNIZER_LANGUAGE")
	setString(&c.Cache.Path, "NORMINDEX_CACHE_PATH")
	setString(&c.Logging.Level, "NORMINDEX_LOG_LEVEL")
	setString(&c.Logging.Format, "NORMINDEX_LOG_FORMAT")
	setBool(&c.Cache.Disabled, "NORMINDEX_CACHE_DISABLED")
	setBool(&c.Quantization.Disabled, "NORMINDEX_QUANTIZATION_DISABLED")
	setInt(&c.Ingest.Concurrency, "NORMINDEX_INGEST_CONCURRENCY")
	setInt(&c.Ingest.MaxAttempts, "NORMINDEX_INGEST_MAX_ATTEMPTS")
}

// Validate rejects configurations the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendBadger:
		if c.Index.Path == "" {
			return fmt.Errorf("%w: index.path", ErrMissingValue)
		}
	case BackendQdrant:
		if c.Index.Qdrant.URL == "" {
			return fmt.Errorf("%w: index.qdrant.url", ErrMissingValue)
		}
		if c.Index.Qdrant.Collection == "" {
			return fmt.Errorf("%w: index.qdrant.collection", ErrMissingValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Index.Backend)
	}

	if c.Embedding.Host == "" {
		return fmt.Errorf("%w: embedding.host", ErrMissingValue)
	}
	if c.Quantization.QualityFloor < 0 || c.Quantization.QualityFloor > 1 {
		return fmt.Errorf("%w: quantization.quality_floor %v", ErrInvalidValue, c.Quantization.QualityFloor)
	}
	if c.Chunking.MaxTokens < 0 || c.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: chunking values must be non-negative", ErrInvalidValue)
	}
	if c.Ingest.MaxAttempts < 0 || c.Ingest.RetryDelay < 0 {
		return fmt.Errorf("%w: ingest retry values must be non-negative", ErrInvalidValue)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
