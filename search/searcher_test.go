package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/normindex/normindex/ai/mock"
	"github.com/normindex/normindex/cache"
	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/store"
	storebadger "github.com/normindex/normindex/store/badger"
)

const testDim = 8

// axis returns a unit vector along the i-th dimension.
func axis(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

// blend returns the normalized combination a*axis(i) + b*axis(j).
func blend(i int, a float32, j int, b float32) []float32 {
	v := make([]float32, testDim)
	v[i] = a
	v[j] = b
	norm := float64(a*a + b*b)
	scale := float32(1 / math.Sqrt(norm))
	for k := range v {
		v[k] *= scale
	}
	return v
}

type indexedChunk struct {
	id       core.ID
	document core.ID
	text     string
	path     []string
	entities []string
	vector   []float32
}

func seedIndex(t *testing.T, chunks []indexedChunk) *storebadger.Index {
	t.Helper()

	index, err := storebadger.NewMemoryIndex()
	if err != nil {
		t.Fatalf("NewMemoryIndex() error: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	entries := make([]*core.IndexEntry, 0, len(chunks))
	for ordinal, c := range chunks {
		entries = append(entries, &core.IndexEntry{
			ChunkId: c.id,
			Vector: core.Vector{
				ChunkId: c.id,
				Dim:     testDim,
				Kind:    core.VectorFull,
				Values:  c.vector,
			},
			Payload: core.Payload{
				DocumentId:    c.document,
				Ordinal:       ordinal,
				Text:          c.text,
				HierarchyPath: c.path,
				Entities:      c.entities,
				Method:        core.ExtractionNative,
			},
		})
	}
	if _, _, err := index.Upsert(context.Background(), entries); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	return index
}

func queryEmbedder(vector []float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.Dim = testDim
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return embedder
}

// recordingMonitor captures stage callbacks for assertions.
type recordingMonitor struct {
	started      string
	cacheHit     bool
	embeddedDim  int
	indexResults int
	verbatimHits int
	finalResults int
}

func (r *recordingMonitor) Start(q string)                           { r.started = q }
func (r *recordingMonitor) CacheLookup(hit bool)                     { r.cacheHit = hit }
func (r *recordingMonitor) AfterEmbedding(dim int)                   { r.embeddedDim = dim }
func (r *recordingMonitor) AfterIndexSearch(rs []*core.SearchResult) { r.indexResults = len(rs) }
func (r *recordingMonitor) VerbatimHit(_ *core.SearchResult)         { r.verbatimHits++ }
func (r *recordingMonitor) Finish(rs []*core.SearchResult)           { r.finalResults = len(rs) }

func TestSearchRanksBySimilarity(t *testing.T) {
	index := seedIndex(t, []indexedChunk{
		{id: 1, document: 100, text: "Расчет прочности бетонных конструкций.", path: []string{"СП 63", "5"}, vector: axis(0)},
		{id: 2, document: 100, text: "Правила приемки earthworks.", path: []string{"СП 63", "9"}, vector: axis(1)},
		{id: 3, document: 200, text: "Нагрузки от веса снегового покрова.", path: []string{"СП 20", "10"}, vector: blend(0, 0.9, 1, 0.4)},
	})
	searcher, err := NewSearcher(index, queryEmbedder(axis(0)))
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	results, err := searcher.Search(context.Background(), Request{Query: "прочность бетона"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 above the default threshold", len(results))
	}
	if results[0].ChunkId != 1 || results[1].ChunkId != 3 {
		t.Errorf("ranking = [%d, %d], want [1, 3]", results[0].ChunkId, results[1].ChunkId)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by score")
	}
}

func TestSearchAppliesFilters(t *testing.T) {
	index := seedIndex(t, []indexedChunk{
		{id: 1, document: 100, text: "Требования к арматуре.", path: []string{"СП 63", "5", "5.2"}, vector: axis(0)},
		{id: 2, document: 200, text: "Требования к арматуре.", path: []string{"СП 20", "5"}, vector: axis(0)},
	})
	searcher, err := NewSearcher(index, queryEmbedder(axis(0)))
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	results, err := searcher.Search(context.Background(), Request{
		Query:   "пункт 5.2 требования к арматуре",
		Filters: store.Filters{HierarchyPrefix: []string{"СП 63", "5"}},
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if len(results) != 1 || results[0].ChunkId != 1 {
		t.Fatalf("filtered results = %+v, want only chunk 1", results)
	}
}

func TestSearchVerbatimBoost(t *testing.T) {
	// Chunk 2 is a slightly weaker semantic match but contains every
	// query word, so the boost must rank it first.
	index := seedIndex(t, []indexedChunk{
		{id: 1, document: 100, text: "Общие положения о проектировании.", path: []string{"СП 63"}, vector: axis(0)},
		{id: 2, document: 100, text: "Снеговая нагрузка на покрытие здания.", path: []string{"СП 20"}, vector: blend(0, 0.95, 1, 0.3)},
	})
	searcher, err := NewSearcher(index, queryEmbedder(axis(0)))
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(),
		Request{Query: "снеговая нагрузка на покрытие"}, monitor)
	if err != nil {
		t.Fatalf("SearchWithMonitor() error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkId != 2 {
		t.Errorf("boosted chunk not ranked first: %d", results[0].ChunkId)
	}
	if monitor.verbatimHits != 1 {
		t.Errorf("verbatim hits = %d, want 1", monitor.verbatimHits)
	}
}

func TestSearchServedFromCache(t *testing.T) {
	index := seedIndex(t, []indexedChunk{
		{id: 1, document: 100, text: "Требования пожарной безопасности.", path: []string{"СП 112"}, vector: axis(0)},
	})
	embedder := queryEmbedder(axis(0))

	backend, err := cache.NewRistrettoBackend(1 << 20)
	if err != nil {
		t.Fatalf("NewRistrettoBackend() error: %v", err)
	}
	queryCache, err := cache.New(backend)
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	t.Cleanup(func() { queryCache.Close() })

	searcher, err := NewSearcher(index, embedder, WithCache(queryCache))
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	// Normalization folds case, ё, and extra whitespace, so the second
	// query must hit the entry written by the first.
	first := &recordingMonitor{}
	if _, err := searcher.SearchWithMonitor(context.Background(),
		Request{Query: "Пожарная безопасность зданий"}, first); err != nil {
		t.Fatalf("first search error: %v", err)
	}
	if first.cacheHit {
		t.Error("first search unexpectedly hit the cache")
	}

	second := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(),
		Request{Query: "  ПОЖАРНАЯ   БЕЗОПАСНОСТЬ ЗДАНИЙ "}, second)
	if err != nil {
		t.Fatalf("second search error: %v", err)
	}

	if !second.cacheHit {
		t.Error("second search missed the cache")
	}
	if len(results) != 1 || results[0].ChunkId != 1 {
		t.Errorf("cached results = %+v", results)
	}
	if embedder.CallCount() != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.CallCount())
	}
}

func TestSearchCacheKeyIncludesParameters(t *testing.T) {
	index := seedIndex(t, []indexedChunk{
		{id: 1, document: 100, text: "Текст раздела.", path: []string{"СП 63"}, vector: axis(0)},
	})
	embedder := queryEmbedder(axis(0))

	backend, err := cache.NewRistrettoBackend(1 << 20)
	if err != nil {
		t.Fatalf("NewRistrettoBackend() error: %v", err)
	}
	queryCache, err := cache.New(backend)
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	t.Cleanup(func() { queryCache.Close() })

	searcher, err := NewSearcher(index, embedder, WithCache(queryCache))
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	ctx := context.Background()
	if _, err := searcher.Search(ctx, Request{Query: "текст раздела", Limit: 5}); err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	monitor := &recordingMonitor{}
	if _, err := searcher.SearchWithMonitor(ctx, Request{Query: "текст раздела", Limit: 7}, monitor); err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if monitor.cacheHit {
		t.Error("different limit shared a cache entry")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	index := seedIndex(t, nil)
	searcher, err := NewSearcher(index, queryEmbedder(axis(0)))
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	if _, err := searcher.Search(context.Background(), Request{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchEmbedderError(t *testing.T) {
	index := seedIndex(t, nil)
	embedder := mock.NewMockEmbedder()
	wantErr := errors.New("embedding service down")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, wantErr
	}

	searcher, err := NewSearcher(index, embedder)
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	if _, err := searcher.Search(context.Background(), Request{Query: "запрос"}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want embedder error", err)
	}
}

func TestNewSearcherValidation(t *testing.T) {
	index := seedIndex(t, nil)

	if _, err := NewSearcher(nil, mock.NewMockEmbedder()); !errors.Is(err, ErrIndexRequired) {
		t.Errorf("nil index: err = %v", err)
	}
	if _, err := NewSearcher(index, nil); !errors.Is(err, ErrEmbedderRequired) {
		t.Errorf("nil embedder: err = %v", err)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Бетонные   Конструкции ", "бетонные конструкции"},
		{"ЖЁСТКОСТЬ узлов", "жесткость узлов"},
		{"", ""},
		{"ГОСТ 27751", "гост 27751"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContainsAllQueryWords(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		query string
		want  bool
	}{
		{"all words present", "снеговая нагрузка на покрытие здания", "снеговая нагрузка", true},
		{"stop words ignored", "нагрузка на покрытие", "нагрузка и покрытие", true},
		{"missing word", "снеговая нагрузка", "ветровая нагрузка", false},
		{"only stop words", "любой текст", "и на по", false},
		{"punctuation trimmed", "прочность, бетона.", "прочность бетона", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := containsAllQueryWords(tc.text, tc.query); got != tc.want {
				t.Errorf("containsAllQueryWords(%q, %q) = %v", tc.text, tc.query, got)
			}
		})
	}
}
