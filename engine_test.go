package normindex

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normindex/normindex/ai/mock"
	"github.com/normindex/normindex/config"
	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/ingest"
	"github.com/normindex/normindex/search"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := config.Default()
	cfg.Index.Path = filepath.Join(t.TempDir(), "index")

	engine, err := NewEngine(cfg, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func normativeText(label string) []byte {
	var sb strings.Builder
	sb.WriteString(label + "\n\n")
	sb.WriteString("1 Область применения\n")
	for i := 0; i < 12; i++ {
		sb.WriteString("Настоящий свод правил распространяется на проектирование и возведение конструкций. ")
	}
	return []byte(sb.String())
}

func TestNewEngine(t *testing.T) {
	t.Run("create new engine", func(t *testing.T) {
		engine := testEngine(t)

		assert.NotNil(t, engine.Index())
		assert.NotNil(t, engine.Cache())
		assert.NotNil(t, engine.logger)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Index.Backend = "etcd"
		_, err := NewEngine(cfg, WithProvider(mock.NewMockProvider()))
		require.Error(t, err)
	})

	t.Run("cache disabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Index.Path = filepath.Join(t.TempDir(), "index")
		cfg.Cache.Disabled = true

		engine, err := NewEngine(cfg, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer engine.Close()

		assert.Nil(t, engine.Cache())
	})
}

func TestEngineIngestAndSearch(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()

	pipeline, err := engine.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	doc := core.NewSourceDocument("sp63.txt", "text/plain", normativeText("СП 63.13330.2018"), nil)
	job, err := pipeline.RunSync(ctx, []*core.SourceDocument{doc})
	require.NoError(t, err)
	require.Equal(t, ingest.StatusCompleted, job.Status())

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Positive(t, stats.TotalChunks)

	searcher, err := engine.NewSearcher()
	require.NoError(t, err)

	// The mock embedder is deterministic, so the exact chunk text is
	// its own best match.
	results, err := searcher.Search(ctx, search.Request{
		Query:    "область применения свода правил",
		MinScore: -1,
		Limit:    5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Equal(t, doc.Id, results[0].Payload.DocumentId)
}

func TestEngineDeleteDocument(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()

	pipeline, err := engine.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	doc := core.NewSourceDocument("sp20.txt", "text/plain", normativeText("СП 20.13330.2016"), nil)
	_, err = pipeline.RunSync(ctx, []*core.SourceDocument{doc})
	require.NoError(t, err)

	removed, err := engine.DeleteDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Positive(t, removed)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)

	// Deleting an absent document is a no-op.
	removed, err = engine.DeleteDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
