package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/store"
)

// qdrantStub records requests and serves canned responses per path.
type qdrantStub struct {
	mu        sync.Mutex
	requests  map[string][]json.RawMessage
	responses map[string]string
	server    *httptest.Server
}

func newQdrantStub(t *testing.T) *qdrantStub {
	t.Helper()
	stub := &qdrantStub{
		requests:  map[string][]json.RawMessage{},
		responses: map[string]string{},
	}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			body = nil
		}

		stub.mu.Lock()
		key := r.Method + " " + r.URL.Path
		stub.requests[key] = append(stub.requests[key], body)
		response, ok := stub.responses[key]
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			response = `{"result":{},"status":"ok"}`
		}
		w.Write([]byte(response))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *qdrantStub) respond(method, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method+" "+path] = body
}

func (s *qdrantStub) lastRequest(t *testing.T, method, path string) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs := s.requests[method+" "+path]
	if len(reqs) == 0 {
		t.Fatalf("no %s request to %s", method, path)
	}
	var decoded map[string]any
	if err := json.Unmarshal(reqs[len(reqs)-1], &decoded); err != nil {
		t.Fatalf("decoding request body: %v", err)
	}
	return decoded
}

func newTestClient(t *testing.T, stub *qdrantStub) *Index {
	t.Helper()
	index, err := New(stub.server.URL, "normdocs")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return index
}

func testEntry(chunkID, docID core.ID, hierarchy []string) *core.IndexEntry {
	return &core.IndexEntry{
		ChunkId: chunkID,
		Vector: core.Vector{
			ChunkId: chunkID,
			Dim:     3,
			Kind:    core.VectorFull,
			Values:  []float32{0.6, 0.8, 0},
		},
		Payload: core.Payload{
			DocumentId:    docID,
			Text:          "Требования к материалам",
			HierarchyPath: hierarchy,
			Method:        core.ExtractionNative,
		},
	}
}

func TestEnsureCollection(t *testing.T) {
	stub := newQdrantStub(t)
	index := newTestClient(t, stub)

	if err := index.EnsureCollection(context.Background(), 384); err != nil {
		t.Fatalf("EnsureCollection() error: %v", err)
	}

	body := stub.lastRequest(t, http.MethodPut, "/collections/normdocs")
	vectors, ok := body["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("request missing vectors config: %v", body)
	}
	if vectors["size"].(float64) != 384 || vectors["distance"] != "Cosine" {
		t.Errorf("vectors config = %v", vectors)
	}
}

func TestUpsertSkipsExistingPoints(t *testing.T) {
	stub := newQdrantStub(t)
	// Chunk 1 already exists server-side.
	stub.respond(http.MethodPost, "/collections/normdocs/points", `{"result":[{"id":1}]}`)
	index := newTestClient(t, stub)

	entries := []*core.IndexEntry{
		testEntry(1, 100, nil),
		testEntry(2, 100, []string{"СП 63", "5"}),
	}

	inserted, duplicates, err := index.Upsert(context.Background(), entries)
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if inserted != 1 || duplicates != 1 {
		t.Errorf("inserted = %d, duplicates = %d, want 1 and 1", inserted, duplicates)
	}

	body := stub.lastRequest(t, http.MethodPut, "/collections/normdocs/points")
	points := body["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("uploaded %d points, want 1", len(points))
	}

	point := points[0].(map[string]any)
	if point["id"].(float64) != 2 {
		t.Errorf("uploaded point id = %v", point["id"])
	}
	payload := point["payload"].(map[string]any)
	if payload["document_id"] != "100" {
		t.Errorf("document_id = %v", payload["document_id"])
	}
	prefixes := payload["hierarchy_prefixes"].([]any)
	if len(prefixes) != 2 || prefixes[1] != "СП 63/5" {
		t.Errorf("hierarchy_prefixes = %v", prefixes)
	}
}

func TestUpsertAllDuplicates(t *testing.T) {
	stub := newQdrantStub(t)
	stub.respond(http.MethodPost, "/collections/normdocs/points", `{"result":[{"id":1},{"id":2}]}`)
	index := newTestClient(t, stub)

	entries := []*core.IndexEntry{testEntry(1, 100, nil), testEntry(2, 100, nil)}
	inserted, duplicates, err := index.Upsert(context.Background(), entries)
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if inserted != 0 || duplicates != 2 {
		t.Errorf("inserted = %d, duplicates = %d, want 0 and 2", inserted, duplicates)
	}
}

func TestSearchBuildsFilterAndDecodesResults(t *testing.T) {
	stub := newQdrantStub(t)
	stub.respond(http.MethodPost, "/collections/normdocs/points/search", `{
		"result": [
			{"id": 7, "score": 0.93, "payload": {
				"document_id": "100", "ordinal": 3,
				"text": "5.2 Требования к материалам",
				"hierarchy": ["СП 63", "5", "5.2"],
				"entities": ["ГОСТ 27751"],
				"method": "native"
			}}
		]
	}`)
	index := newTestClient(t, stub)

	results, err := index.Search(context.Background(), &store.Query{
		Vector:   []float32{0.6, 0.8, 0},
		MinScore: 0.5,
		Limit:    5,
		Filters: store.Filters{
			DocumentIds:     []core.ID{100},
			HierarchyPrefix: []string{"СП 63", "5"},
		},
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	hit := results[0]
	if hit.ChunkId != 7 || hit.Score != 0.93 {
		t.Errorf("hit = %+v", hit)
	}
	if hit.Payload.DocumentId != 100 || hit.Payload.Method != core.ExtractionNative {
		t.Errorf("payload = %+v", hit.Payload)
	}
	if len(hit.Payload.Entities) != 1 || hit.Payload.Entities[0] != "ГОСТ 27751" {
		t.Errorf("entities = %v", hit.Payload.Entities)
	}

	body := stub.lastRequest(t, http.MethodPost, "/collections/normdocs/points/search")
	if body["limit"].(float64) != 5 {
		t.Errorf("limit = %v", body["limit"])
	}
	if body["score_threshold"].(float64) != 0.5 {
		t.Errorf("score_threshold = %v", body["score_threshold"])
	}

	filter := body["filter"].(map[string]any)
	must := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("filter must has %d conditions: %v", len(must), must)
	}
	prefixCond := must[1].(map[string]any)
	if prefixCond["key"] != "hierarchy_prefixes" {
		t.Errorf("second condition = %v", prefixCond)
	}
	if prefixCond["match"].(map[string]any)["value"] != "СП 63/5" {
		t.Errorf("prefix match = %v", prefixCond["match"])
	}
}

func TestDeleteDocument(t *testing.T) {
	stub := newQdrantStub(t)
	stub.respond(http.MethodPost, "/collections/normdocs/points/count", `{"result":{"count":4}}`)
	index := newTestClient(t, stub)

	removed, err := index.DeleteDocument(context.Background(), 100)
	if err != nil {
		t.Fatalf("DeleteDocument() error: %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}

	body := stub.lastRequest(t, http.MethodPost, "/collections/normdocs/points/delete")
	filter := body["filter"].(map[string]any)
	cond := filter["must"].([]any)[0].(map[string]any)
	if cond["key"] != "document_id" || cond["match"].(map[string]any)["value"] != "100" {
		t.Errorf("delete filter = %v", filter)
	}
}

func TestDeleteDocumentAbsent(t *testing.T) {
	stub := newQdrantStub(t)
	stub.respond(http.MethodPost, "/collections/normdocs/points/count", `{"result":{"count":0}}`)
	index := newTestClient(t, stub)

	removed, err := index.DeleteDocument(context.Background(), 100)
	if err != nil {
		t.Fatalf("DeleteDocument() error: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	stub.mu.Lock()
	_, deleted := stub.requests["POST /collections/normdocs/points/delete"]
	stub.mu.Unlock()
	if deleted {
		t.Error("delete issued for absent document")
	}
}

func TestStats(t *testing.T) {
	stub := newQdrantStub(t)
	stub.respond(http.MethodPost, "/collections/normdocs/points/count", `{"result":{"count":3}}`)
	stub.respond(http.MethodPost, "/collections/normdocs/points/scroll", `{
		"result": {
			"points": [
				{"payload": {"document_id": "100"}},
				{"payload": {"document_id": "100"}},
				{"payload": {"document_id": "200"}}
			],
			"next_page_offset": null
		}
	}`)
	index := newTestClient(t, stub)

	stats, err := index.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalChunks != 3 || stats.TotalDocuments != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBackendErrorWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	index, err := New(server.URL, "normdocs")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, _, err = index.Upsert(context.Background(), []*core.IndexEntry{testEntry(1, 100, nil)})
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
	if !errors.Is(err, store.ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
}
