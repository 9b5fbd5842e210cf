package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.NotEmpty(t, cfg.EmbeddingModel)
	assert.Equal(t, "rus+eng", cfg.RecognizerLanguage)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithEmbeddingHost("http://embed.internal:9100"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithRecognizerHost("http://ocr.internal:8884/"),
		WithRecognizerLanguage("rus"),
		WithBatchSize(8),
		WithRequestTimeout(5*time.Second),
	)

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://embed.internal:9100/v1", cfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "http://ocr.internal:8884", cfg.RecognizerHost)
	assert.Equal(t, "rus", cfg.RecognizerLanguage)
	assert.Equal(t, 8, cfg.BatchSize)
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"bare host", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithEmbeddingHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, true},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate_RepairsZeroTunables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 0
	cfg.RequestTimeout = 0

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
