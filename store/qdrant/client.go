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

// Package qdrant implements store.VectorStore over the Qdrant REST API.
//
// Point IDs are the uint64 content-hash chunk IDs, so upserts are
// naturally idempotent on the server side; the client still counts
// duplicates by retrieving existing IDs before writing. Hierarchy-prefix
// filtering is served by a materialized "hierarchy_prefixes" payload
// field, which turns prefix queries into exact payload matches that
// Qdrant applies before truncating to the result limit.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/quant"
	"github.com/normindex/normindex/store"
)

// DefaultTimeout bounds a single HTTP request to Qdrant.
const DefaultTimeout = 15 * time.Second

// Index is a Qdrant-backed vector store.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
	quantizer  *quant.Quantizer
	logger     *slog.Logger
}

var _ store.VectorStore = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithAPIKey sets the api-key header for all requests.
func WithAPIKey(key string) Option {
	return func(x *Index) error {
		x.apiKey = key
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(x *Index) error {
		if client != nil {
			x.client = client
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(x *Index) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		x.client.Timeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Index) error {
		if logger != nil {
			x.logger = logger
		}
		return nil
	}
}

// New creates a Qdrant index client for the given collection.
func New(baseURL, collection string, opts ...Option) (*Index, error) {
	if baseURL == "" || collection == "" {
		return nil, fmt.Errorf("%w: base URL and collection are required", store.ErrInvalidQuery)
	}

	quantizer, err := quant.New()
	if err != nil {
		return nil, err
	}

	x := &Index{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		client:     &http.Client{Timeout: DefaultTimeout},
		quantizer:  quantizer,
		logger:     slog.Default().With("component", "qdrant"),
	}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// EnsureCollection creates the collection if it does not exist.
// Qdrant returns success when the collection already exists with the
// same schema.
func (x *Index) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", store.ErrInvalidQuery, dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return x.do(ctx, http.MethodPut, x.collectionURL(""), body, nil)
}

// Close is a no-op; the index holds no persistent connections.
func (x *Index) Close() error {
	return nil
}

// Upsert writes entries as points, counting already-present chunk IDs
// as duplicates. Writes use wait=true so subsequent searches see them.
func (x *Index) Upsert(ctx context.Context, entries []*core.IndexEntry) (int, int, error) {
	ids := make([]uint64, len(entries))
	for i, entry := range entries {
		ids[i] = uint64(entry.ChunkId)
	}

	existing, err := x.existingIDs(ctx, ids)
	if err != nil {
		return 0, 0, err
	}

	points := make([]map[string]any, 0, len(entries))
	var duplicates int
	for _, entry := range entries {
		if existing[uint64(entry.ChunkId)] {
			duplicates++
			continue
		}

		values, err := x.vectorValues(&entry.Vector)
		if err != nil {
			return 0, 0, err
		}
		points = append(points, map[string]any{
			"id":      uint64(entry.ChunkId),
			"vector":  values,
			"payload": encodePayload(&entry.Payload),
		})
	}

	if len(points) == 0 {
		return 0, duplicates, nil
	}

	body := map[string]any{"points": points}
	if err := x.do(ctx, http.MethodPut, x.collectionURL("/points?wait=true"), body, nil); err != nil {
		return 0, 0, err
	}
	return len(points), duplicates, nil
}

// Search runs a filtered similarity query. Filters are part of the
// Qdrant request, so they apply before the limit truncates results.
func (x *Index) Search(ctx context.Context, query *store.Query) ([]*core.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       query.Vector,
		"limit":        query.Limit,
		"with_payload": true,
	}
	if query.MinScore > 0 {
		body["score_threshold"] = query.MinScore
	}
	if filter := encodeFilters(query.Filters); filter != nil {
		body["filter"] = filter
	}

	var resp struct {
		Result []struct {
			ID      json.Number     `json:"id"`
			Score   float32         `json:"score"`
			Payload payloadDocument `json:"payload"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(resp.Result))
	for _, hit := range resp.Result {
		id, err := strconv.ParseUint(hit.ID.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point id %q: %w", store.ErrSerializationFailed, hit.ID, err)
		}
		results = append(results, &core.SearchResult{
			ChunkId: core.ID(id),
			Score:   hit.Score,
			Payload: hit.Payload.toCore(),
		})
	}
	return results, nil
}

// DeleteDocument removes all points of a document by payload filter.
func (x *Index) DeleteDocument(ctx context.Context, documentID core.ID) (int, error) {
	filter := map[string]any{
		"must": []any{matchCondition("document_id", formatID(documentID))},
	}

	count, err := x.countPoints(ctx, filter)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	body := map[string]any{"filter": filter}
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return 0, err
	}
	return count, nil
}

// Stats reports the point count and the number of distinct documents.
// Distinct documents are collected by scrolling payloads, which is
// acceptable for the collection sizes this index serves.
func (x *Index) Stats(ctx context.Context) (*core.IndexStats, error) {
	total, err := x.countPoints(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats := &core.IndexStats{TotalChunks: total}
	documents := make(map[string]bool)

	var offset json.RawMessage
	for {
		body := map[string]any{
			"limit":        1024,
			"with_payload": []string{"document_id"},
			"with_vector":  false,
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Payload struct {
						DocumentID string `json:"document_id"`
					} `json:"payload"`
				} `json:"points"`
				NextPageOffset json.RawMessage `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/scroll"), body, &resp); err != nil {
			return nil, err
		}

		for _, point := range resp.Result.Points {
			documents[point.Payload.DocumentID] = true
		}
		if len(resp.Result.NextPageOffset) == 0 || string(resp.Result.NextPageOffset) == "null" {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	stats.TotalDocuments = len(documents)
	return stats, nil
}

// existingIDs retrieves which of the given point IDs are already stored.
func (x *Index) existingIDs(ctx context.Context, ids []uint64) (map[uint64]bool, error) {
	body := map[string]any{
		"ids":          ids,
		"with_payload": false,
		"with_vector":  false,
	}

	var resp struct {
		Result []struct {
			ID json.Number `json:"id"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points"), body, &resp); err != nil {
		return nil, err
	}

	existing := make(map[uint64]bool, len(resp.Result))
	for _, point := range resp.Result {
		id, err := strconv.ParseUint(point.ID.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point id %q: %w", store.ErrSerializationFailed, point.ID, err)
		}
		existing[id] = true
	}
	return existing, nil
}

func (x *Index) countPoints(ctx context.Context, filter map[string]any) (int, error) {
	body := map[string]any{"exact": true}
	if filter != nil {
		body["filter"] = filter
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/count"), body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// vectorValues returns float values suitable for a Qdrant point.
// Quantized vectors are reconstructed before upload.
func (x *Index) vectorValues(vector *core.Vector) ([]float32, error) {
	if vector.Kind == core.VectorQuantized {
		return x.quantizer.Dequantize(vector)
	}
	return vector.Values, nil
}

func (x *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.baseURL, x.collection, suffix)
}

// do executes one JSON request against Qdrant. Non-2xx responses and
// transport errors are wrapped in store.ErrBackendUnavailable.
func (x *Index) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrSerializationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %s: %s",
			store.ErrBackendUnavailable, method, url, resp.Status, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		decoder.UseNumber()
		if err := decoder.Decode(out); err != nil {
			return fmt.Errorf("%w: %w", store.ErrSerializationFailed, err)
		}
	}
	return nil
}

// payloadDocument is the JSON shape of a point payload.
type payloadDocument struct {
	DocumentID string   `json:"document_id"`
	Ordinal    int      `json:"ordinal"`
	Text       string   `json:"text"`
	Hierarchy  []string `json:"hierarchy"`
	Entities   []string `json:"entities"`
	Method     string   `json:"method"`
}

func (p payloadDocument) toCore() core.Payload {
	docID, _ := strconv.ParseUint(p.DocumentID, 10, 64)

	method := core.ExtractionNative
	if p.Method == core.ExtractionOCRFallback.String() {
		method = core.ExtractionOCRFallback
	}

	return core.Payload{
		DocumentId:    core.ID(docID),
		Ordinal:       p.Ordinal,
		Text:          p.Text,
		HierarchyPath: p.Hierarchy,
		Entities:      p.Entities,
		Method:        method,
	}
}

// encodePayload builds the point payload, including materialized
// hierarchy prefixes for server-side prefix filtering.
func encodePayload(payload *core.Payload) map[string]any {
	prefixes := make([]string, 0, len(payload.HierarchyPath))
	for i := range payload.HierarchyPath {
		prefixes = append(prefixes, hierarchyKey(payload.HierarchyPath[:i+1]))
	}

	return map[string]any{
		"document_id":        formatID(payload.DocumentId),
		"ordinal":            payload.Ordinal,
		"text":               payload.Text,
		"hierarchy":          payload.HierarchyPath,
		"hierarchy_prefixes": prefixes,
		"entities":           payload.Entities,
		"method":             payload.Method.String(),
	}
}

// encodeFilters translates store.Filters into a Qdrant filter clause.
func encodeFilters(filters store.Filters) map[string]any {
	if filters.Empty() {
		return nil
	}

	var must []any

	if len(filters.DocumentIds) > 0 {
		values := make([]string, len(filters.DocumentIds))
		for i, id := range filters.DocumentIds {
			values[i] = formatID(id)
		}
		must = append(must, matchAnyCondition("document_id", values))
	}

	if len(filters.HierarchyPrefix) > 0 {
		must = append(must, matchCondition("hierarchy_prefixes", hierarchyKey(filters.HierarchyPrefix)))
	}

	if len(filters.Entities) > 0 {
		must = append(must, matchAnyCondition("entities", filters.Entities))
	}

	return map[string]any{"must": must}
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func matchAnyCondition(key string, values []string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"any": values},
	}
}

func formatID(id core.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func hierarchyKey(labels []string) string {
	return strings.Join(labels, "/")
}
