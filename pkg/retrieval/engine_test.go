package retrieval

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"strings"
	"testing"

	"voicepilot-be/pkg/blobstore"
	"voicepilot-be/pkg/embedding"
)

// wordHashEmbedder produces a deterministic bag-of-words vector, so identical
// text always embeds identically and disjoint texts stay dissimilar.
type wordHashEmbedder struct {
	dims  int
	calls int
}

func (e *wordHashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	v := make([]float32, e.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(e.dims)]++
	}
	return v, nil
}

// mappedEmbedder returns pre-baked vectors per normalized text.
type mappedEmbedder struct {
	vectors map[string][]float32
}

func (e *mappedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := embedding.NormalizeKey(text)
	v, ok := e.vectors[key]
	if !ok {
		return nil, fmt.Errorf("%w: no vector for %q", embedding.ErrUnavailable, key)
	}
	return v, nil
}

// failAfterEmbedder succeeds n times then fails, to exercise ingest rollback.
type failAfterEmbedder struct {
	remaining int
}

func (e *failAfterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.remaining <= 0 {
		return nil, fmt.Errorf("%w: injected failure", embedding.ErrUnavailable)
	}
	e.remaining--
	return []float32{1, 0, 0}, nil
}

func newTestEngine(t *testing.T, provider embedding.Provider) (*Engine, *Store) {
	t.Helper()
	blobs, err := blobstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cache := embedding.NewCache(provider)
	store := NewStore(blobs, cache, 0, log.New(io.Discard, "", 0))
	return NewEngine(store, cache, log.New(io.Discard, "", 0)), store
}

func TestIngestThenQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &wordHashEmbedder{dims: 64})

	doc := Document{
		Id:      "doc1",
		Content: "Returns are accepted within 30 days of purchase with a valid receipt.",
		Source:  SourceManual,
	}
	count, err := engine.Ingest(ctx, "acme", doc)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if count != 1 {
		t.Fatalf("chunk count = %d, want 1", count)
	}

	results, err := engine.Query(ctx, "acme", doc.Content, DefaultTopK, DefaultMinSimilarity)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("round-trip query returned no chunks")
	}
	if results[0].Chunk.SourceDocumentId != "doc1" {
		t.Errorf("top chunk document = %s, want doc1", results[0].Chunk.SourceDocumentId)
	}
	if results[0].Score < DefaultMinSimilarity {
		t.Errorf("top score = %f, want >= %f", results[0].Score, DefaultMinSimilarity)
	}
}

func TestIngestChunkCountAndOverlap(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		length    int
		wantCount int
	}{
		{120, 1},
		{500, 1},
		{501, 2},
		{950, 2},
		{951, 3},
		{2300, 5},
	}

	for _, tt := range tests {
		engine, store := newTestEngine(t, &wordHashEmbedder{dims: 16})
		content := strings.Repeat("x", tt.length)

		count, err := engine.Ingest(ctx, "acme", Document{Id: "d", Content: content, Source: SourceAPI})
		if err != nil {
			t.Fatalf("length %d: ingest: %v", tt.length, err)
		}
		if count != tt.wantCount {
			t.Errorf("length %d: chunk count = %d, want %d", tt.length, count, tt.wantCount)
		}

		chunks := store.Chunks("acme")
		for i := 1; i < len(chunks); i++ {
			prev, cur := chunks[i-1].Content, chunks[i].Content
			if !strings.HasPrefix(cur, prev[len(prev)-DefaultChunkOverlap:]) {
				t.Errorf("length %d: chunk %d does not overlap its predecessor by %d runes", tt.length, i, DefaultChunkOverlap)
			}
		}
	}
}

func TestClientIsolation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &wordHashEmbedder{dims: 64})

	content := "The warehouse opens at seven in the morning."
	if _, err := engine.Ingest(ctx, "client-a", Document{Id: "d1", Content: content, Source: SourceManual}); err != nil {
		t.Fatalf("ingest for client-a: %v", err)
	}

	results, err := engine.Query(ctx, "client-b", content, DefaultTopK, DefaultMinSimilarity)
	if err != nil {
		t.Fatalf("query for client-b: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("client-b saw %d chunks from client-a, want 0", len(results))
	}
}

func TestQueryThresholdAndEmptyResult(t *testing.T) {
	ctx := context.Background()
	provider := &mappedEmbedder{vectors: map[string][]float32{
		"alpha content": {1, 0, 0},
		"beta content":  {0, 1, 0},
		"the query":     {1, 0.1, 0},
	}}
	engine, _ := newTestEngine(t, provider)

	if _, err := engine.Ingest(ctx, "acme", Document{Id: "a", Content: "alpha content", Source: SourceManual}); err != nil {
		t.Fatalf("ingest a: %v", err)
	}
	if _, err := engine.Ingest(ctx, "acme", Document{Id: "b", Content: "beta content", Source: SourceManual}); err != nil {
		t.Fatalf("ingest b: %v", err)
	}

	results, err := engine.Query(ctx, "acme", "the query", DefaultTopK, 0.7)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (beta must fall below threshold)", len(results))
	}
	if results[0].Chunk.SourceDocumentId != "a" {
		t.Errorf("kept document = %s, want a", results[0].Chunk.SourceDocumentId)
	}
	for _, r := range results {
		if r.Score < 0.7 {
			t.Errorf("returned score %f below threshold", r.Score)
		}
	}

	// Raising the threshold past the best match yields an empty, non-error result.
	results, err = engine.Query(ctx, "acme", "the query", DefaultTopK, 0.999)
	if err != nil {
		t.Fatalf("strict query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("strict query results = %d, want 0", len(results))
	}
}

func TestQueryTieBreaking(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &wordHashEmbedder{dims: 16})

	// Identical content in two documents: equal scores, smaller id wins.
	content := "same words in every document"
	if _, err := engine.Ingest(ctx, "acme", Document{Id: "doc-b", Content: content, Source: SourceManual}); err != nil {
		t.Fatalf("ingest doc-b: %v", err)
	}
	if _, err := engine.Ingest(ctx, "acme", Document{Id: "doc-a", Content: content, Source: SourceManual}); err != nil {
		t.Fatalf("ingest doc-a: %v", err)
	}

	results, err := engine.Query(ctx, "acme", content, DefaultTopK, 0.5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Chunk.SourceDocumentId != "doc-a" {
		t.Errorf("first tie-broken document = %s, want doc-a", results[0].Chunk.SourceDocumentId)
	}
}

func TestIngestRollbackOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	// Three windows for this length; allow two embeds then fail.
	engine, store := newTestEngine(t, &failAfterEmbedder{remaining: 2})

	content := strings.Repeat("y", 951)
	_, err := engine.Ingest(ctx, "acme", Document{Id: "doomed", Content: content, Source: SourceUpload})
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	if got := len(store.Chunks("acme")); got != 0 {
		t.Errorf("partial ingest persisted %d chunks, want 0", got)
	}
	if stats := store.Stats("acme"); stats.DocumentCount != 0 {
		t.Errorf("document count = %d, want 0", stats.DocumentCount)
	}
}

func TestDeleteIdempotence(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, &wordHashEmbedder{dims: 16})

	if err := engine.DeleteClient(ctx, "never-created"); err != nil {
		t.Fatalf("delete unknown client: %v", err)
	}
	if err := engine.DeleteDocument(ctx, "never-created", "nope"); err != nil {
		t.Fatalf("delete unknown document: %v", err)
	}

	if _, err := engine.Ingest(ctx, "acme", Document{Id: "d1", Content: "something", Source: SourceManual}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := engine.DeleteDocument(ctx, "acme", "d1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := engine.DeleteDocument(ctx, "acme", "d1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if got := len(store.Chunks("acme")); got != 0 {
		t.Errorf("chunks after delete = %d, want 0", got)
	}

	if err := engine.DeleteClient(ctx, "acme"); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if err := engine.DeleteClient(ctx, "acme"); err != nil {
		t.Fatalf("delete client again: %v", err)
	}
}

func TestDimensionValidation(t *testing.T) {
	ctx := context.Background()
	provider := &mappedEmbedder{vectors: map[string][]float32{
		"three dims": {1, 0, 0},
		"two dims":   {1, 0},
	}}
	engine, _ := newTestEngine(t, provider)

	if _, err := engine.Ingest(ctx, "acme", Document{Id: "first", Content: "three dims", Source: SourceManual}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	_, err := engine.Ingest(ctx, "acme", Document{Id: "second", Content: "two dims", Source: SourceManual})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestStatsCounters(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &wordHashEmbedder{dims: 16})

	if _, err := engine.Ingest(ctx, "acme", Document{Id: "d1", Content: strings.Repeat("a", 950), Source: SourceManual}); err != nil {
		t.Fatalf("ingest d1: %v", err)
	}
	if _, err := engine.Ingest(ctx, "acme", Document{Id: "d2", Content: "short", Source: SourceManual}); err != nil {
		t.Fatalf("ingest d2: %v", err)
	}

	stats := engine.Stats(ctx, "acme")
	if stats.DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", stats.DocumentCount)
	}
	if stats.ChunkCount != 3 {
		t.Errorf("chunk count = %d, want 3", stats.ChunkCount)
	}
	if stats.LastIngestTime.IsZero() {
		t.Error("last ingest time not recorded")
	}
}

func TestCosineEdgeCases(t *testing.T) {
	if got := Cosine([]float32{0, 0}, []float32{1, 2}); got != 0 {
		t.Errorf("cosine with zero vector = %f, want 0", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("cosine with mismatched lengths = %f, want 0", got)
	}
	if got := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}); got < 0.999 {
		t.Errorf("cosine of identical vectors = %f, want ~1", got)
	}
}

func TestInitializeReplacesKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, &wordHashEmbedder{dims: 64})

	if _, err := engine.Ingest(ctx, "acme", Document{Id: "stale", Content: "old knowledge about shipping times", Source: SourceManual}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	total, err := engine.Initialize(ctx, "acme", []Document{
		{Id: "returns", Content: "Returns are accepted within 30 days of purchase.", Source: SourceAPI},
		{Id: "warranty", Content: "All products carry a two year limited warranty.", Source: SourceAPI},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if total != 2 {
		t.Fatalf("total chunks = %d, want 2", total)
	}

	for _, c := range store.Chunks("acme") {
		if c.SourceDocumentId == "stale" {
			t.Fatal("initialize kept a chunk from the replaced knowledge base")
		}
	}
	if stats := engine.Stats(ctx, "acme"); stats.DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", stats.DocumentCount)
	}

	// Initializing with an empty set just clears the client.
	if _, err := engine.Initialize(ctx, "acme", nil); err != nil {
		t.Fatalf("empty initialize: %v", err)
	}
	if got := len(store.Chunks("acme")); got != 0 {
		t.Errorf("chunks after empty initialize = %d, want 0", got)
	}
}
