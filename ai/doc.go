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


// Package ai provides abstractions for the model backends used by normindex.
//
// Two services are defined here:
//
//   - Embedder: generates vector embeddings from text
//   - Recognizer: optical text recognition for scanned documents
//
// Both are remote services reached over HTTP; the indexing engine depends
// only on these interfaces, never on a concrete client.
//
// # Implementation Packages
//
//   - ai/openai: embeddings via any OpenAI-compatible API
//   - ai/ocr: recognition via a tesseract-style HTTP sidecar
//   - ai/mock: deterministic test doubles without external dependencies
//
// Public constructors (openai.NewEmbedder, ocr.NewRecognizer) return
// interface types to enforce abstraction. Mock constructors return concrete
// types so tests can inject behavior and assert on call counts.
package ai
