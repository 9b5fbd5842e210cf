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


package openai

import (
	"log/slog"

	"github.com/normindex/normindex/ai"
	"github.com/normindex/normindex/ai/ocr"
)

// Provider implements ai.Provider with an OpenAI-compatible embedder and a
// tesseract-style recognition sidecar.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	recognizer ai.Recognizer
	logger     *slog.Logger
}

// NewProvider creates a new AI provider.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	recognizer := ocr.NewRecognizer(config)

	return &Provider{
		config:     config,
		embedder:   embedder,
		recognizer: recognizer,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Recognizer returns the optical recognition service.
func (p *Provider) Recognizer() ai.Recognizer {
	return p.recognizer
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider")
	return nil
}
