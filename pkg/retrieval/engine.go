package retrieval

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"

	"voicepilot-be/pkg/embedding"
	"voicepilot-be/pkg/utils"
)

// Chunking and query defaults. Chunk sizes are in runes.
const (
	DefaultChunkSize     = 500
	DefaultChunkOverlap  = 50
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.7
)

// Engine turns documents into embedded chunks and answers similarity queries
// against one client's knowledge base at a time.
type Engine struct {
	store        *Store
	cache        *embedding.Cache
	chunkSize    int
	chunkOverlap int
	logger       *log.Logger
}

func NewEngine(store *Store, cache *embedding.Cache, logger *log.Logger) *Engine {
	return &Engine{
		store:        store,
		cache:        cache,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		logger:       logger,
	}
}

// Ingest splits the document into overlapping windows, embeds every window,
// and commits the whole chunk set in one store call. If any embedding fails
// nothing is persisted for the document.
func (e *Engine) Ingest(ctx context.Context, clientId string, doc Document) (int, error) {
	windows := utils.SplitWindows(doc.Content, e.chunkSize, e.chunkOverlap)
	e.logger.Printf("[INGEST] client=%s doc=%s windows=%d", clientId, doc.Id, len(windows))

	chunks := make([]Chunk, 0, len(windows))
	for i, w := range windows {
		vector, err := e.cache.Get(ctx, w.Content)
		if err != nil {
			// Staged chunks are discarded; the store never sees them.
			return 0, fmt.Errorf("embed chunk %d of document %s: %w", i, doc.Id, err)
		}

		metadata := make(map[string]string, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["chunk_start"] = strconv.Itoa(w.Start)
		metadata["chunk_end"] = strconv.Itoa(w.End)

		chunks = append(chunks, Chunk{
			Content:          w.Content,
			SequenceIndex:    i,
			SourceDocumentId: doc.Id,
			Embedding:        vector,
			Metadata:         metadata,
		})
	}

	if err := e.store.ReplaceDocument(ctx, clientId, doc.Id, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Query embeds the text and ranks the client's chunks by cosine similarity.
// Chunks below minSimilarity are dropped; an empty result is not an error.
// Ties break toward the lower sequence index, then the smaller document id.
func (e *Engine) Query(ctx context.Context, clientId, text string, topK int, minSimilarity float32) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVector, err := e.cache.Get(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks := e.store.Chunks(clientId)
	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		score := Cosine(queryVector, c.Embedding)
		if score >= minSimilarity {
			scored = append(scored, ScoredChunk{Chunk: c, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.SequenceIndex != scored[j].Chunk.SequenceIndex {
			return scored[i].Chunk.SequenceIndex < scored[j].Chunk.SequenceIndex
		}
		return scored[i].Chunk.SourceDocumentId < scored[j].Chunk.SourceDocumentId
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	e.logger.Printf("[QUERY] client=%s candidates=%d returned=%d", clientId, len(chunks), len(scored))
	return scored, nil
}

// Initialize replaces the client's entire knowledge base with the given
// documents. Existing chunks are dropped first; if any document fails to
// embed, the documents ingested before it remain, so callers should treat a
// partial error as retry-the-rest rather than start-over. Returns the count
// of chunks across all ingested documents.
func (e *Engine) Initialize(ctx context.Context, clientId string, docs []Document) (int, error) {
	if err := e.store.DeleteClient(ctx, clientId); err != nil {
		return 0, err
	}

	total := 0
	for _, doc := range docs {
		n, err := e.Ingest(ctx, clientId, doc)
		if err != nil {
			return total, fmt.Errorf("initialize document %s: %w", doc.Id, err)
		}
		total += n
	}
	e.logger.Printf("[INIT] client=%s documents=%d chunks=%d", clientId, len(docs), total)
	return total, nil
}

// DeleteDocument removes one document's chunks. Idempotent.
func (e *Engine) DeleteDocument(ctx context.Context, clientId, documentId string) error {
	return e.store.DeleteDocument(ctx, clientId, documentId)
}

// DeleteClient removes a client's entire knowledge base. Idempotent.
func (e *Engine) DeleteClient(ctx context.Context, clientId string) error {
	return e.store.DeleteClient(ctx, clientId)
}

// Stats reports the client's knowledge-base counters.
func (e *Engine) Stats(ctx context.Context, clientId string) Stats {
	return e.store.Stats(clientId)
}

// ClientIDs lists the clients with an indexed knowledge base.
func (e *Engine) ClientIDs() []string {
	return e.store.ClientIDs()
}

// Cosine computes dot(a,b) / (|a| * |b|), defined as 0 when either vector is
// exactly zero. Accumulates in float64 to keep long vectors stable.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
