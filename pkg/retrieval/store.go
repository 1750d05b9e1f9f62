package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"voicepilot-be/pkg/blobstore"
	"voicepilot-be/pkg/embedding"
)

// ErrDimensionMismatch is returned when a chunk's embedding does not match
// the deployment's configured dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store holds every client's chunk set in memory and mirrors each client to
// one durable snapshot blob. The in-memory index is rebuilt from snapshots at
// startup and never assumed consistent with the blob on its own.
//
// Concurrency: writes for the same client are serialized; readers work off an
// immutable view that is swapped in one step after the snapshot has been
// durably replaced, so a query that started before a write sees the pre-write
// view and never a half-written one.
type Store struct {
	blobs  blobstore.Store
	cache  *embedding.Cache
	dims   int // 0 until the first insert fixes it for the deployment
	logger *log.Logger

	mu      sync.RWMutex
	clients map[string]*clientIndex
}

type clientIndex struct {
	writeMu sync.Mutex // serializes writes for this client

	mu   sync.RWMutex
	view *clientView
}

type clientView struct {
	chunks     []Chunk
	lastIngest time.Time
}

// snapshotFile is the persisted layout: one durable unit per client with its
// chunk set plus the embedding-cache entries for those chunk texts.
type snapshotFile struct {
	ClientId       string               `json:"client_id"`
	Dims           int                  `json:"dims"`
	SavedAt        time.Time            `json:"saved_at"`
	LastIngestTime time.Time            `json:"last_ingest_time"`
	Chunks         []Chunk              `json:"chunks"`
	EmbeddingCache map[string][]float32 `json:"embedding_cache,omitempty"`
}

func NewStore(blobs blobstore.Store, cache *embedding.Cache, dims int, logger *log.Logger) *Store {
	return &Store{
		blobs:   blobs,
		cache:   cache,
		dims:    dims,
		logger:  logger,
		clients: make(map[string]*clientIndex),
	}
}

// Load rebuilds the in-memory index from the persisted snapshots and seeds
// the embedding cache with each client's saved entries.
func (s *Store) Load(ctx context.Context) error {
	ids, err := s.blobs.ListClientIDs(ctx)
	if err != nil {
		return fmt.Errorf("list client snapshots: %w", err)
	}

	for _, clientId := range ids {
		data, err := s.blobs.ReadClientSnapshot(ctx, clientId)
		if err != nil {
			if errors.Is(err, blobstore.ErrSnapshotNotFound) {
				continue
			}
			return fmt.Errorf("read snapshot for %s: %w", clientId, err)
		}

		var snap snapshotFile
		if err := json.Unmarshal(data, &snap); err != nil {
			s.logger.Printf("[ERROR] Skipping corrupt snapshot for client %s: %v", clientId, err)
			continue
		}

		if s.dims == 0 {
			s.dims = snap.Dims
		}
		if snap.Dims != 0 && s.dims != 0 && snap.Dims != s.dims {
			s.logger.Printf("[ERROR] Skipping snapshot for client %s: dims %d, deployment expects %d", clientId, snap.Dims, s.dims)
			continue
		}

		if s.cache != nil {
			s.cache.Import(snap.EmbeddingCache)
		}

		idx := s.getOrCreate(clientId)
		idx.mu.Lock()
		idx.view = &clientView{chunks: snap.Chunks, lastIngest: snap.LastIngestTime}
		idx.mu.Unlock()

		s.logger.Printf("[INFO] Restored client %s: %d chunks", clientId, len(snap.Chunks))
	}

	return nil
}

// Dims reports the fixed embedding dimensionality, 0 if nothing was inserted yet.
func (s *Store) Dims() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

func (s *Store) getOrCreate(clientId string) *clientIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.clients[clientId]
	if !ok {
		idx = &clientIndex{view: &clientView{}}
		s.clients[clientId] = idx
	}
	return idx
}

func (s *Store) peek(clientId string) (*clientIndex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.clients[clientId]
	return idx, ok
}

func (s *Store) validateDims(chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d of %s has an empty embedding", ErrDimensionMismatch, c.SequenceIndex, c.SourceDocumentId)
		}
		if s.dims == 0 {
			s.dims = len(c.Embedding)
		}
		if len(c.Embedding) != s.dims {
			return fmt.Errorf("%w: got %d, deployment uses %d", ErrDimensionMismatch, len(c.Embedding), s.dims)
		}
	}
	return nil
}

// ReplaceDocument commits a document's full chunk set in one step: existing
// chunks for the document are dropped, the new set appended, the snapshot
// persisted, and only then the in-memory view swapped. A failed persist
// leaves both the blob and the view untouched.
func (s *Store) ReplaceDocument(ctx context.Context, clientId, documentId string, chunks []Chunk) error {
	if err := s.validateDims(chunks); err != nil {
		return err
	}

	idx := s.getOrCreate(clientId)
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.mu.RLock()
	old := idx.view
	idx.mu.RUnlock()

	next := make([]Chunk, 0, len(old.chunks)+len(chunks))
	for _, c := range old.chunks {
		if c.SourceDocumentId != documentId {
			next = append(next, c)
		}
	}
	next = append(next, chunks...)

	view := &clientView{chunks: next, lastIngest: time.Now()}
	if err := s.persist(ctx, clientId, view); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.view = view
	idx.mu.Unlock()
	return nil
}

// DeleteDocument removes a document's chunks. Deleting an unknown document
// or client is a no-op.
func (s *Store) DeleteDocument(ctx context.Context, clientId, documentId string) error {
	idx, ok := s.peek(clientId)
	if !ok {
		return nil
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.mu.RLock()
	old := idx.view
	idx.mu.RUnlock()

	next := make([]Chunk, 0, len(old.chunks))
	for _, c := range old.chunks {
		if c.SourceDocumentId != documentId {
			next = append(next, c)
		}
	}
	if len(next) == len(old.chunks) {
		return nil
	}

	view := &clientView{chunks: next, lastIngest: old.lastIngest}
	if err := s.persist(ctx, clientId, view); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.view = view
	idx.mu.Unlock()
	return nil
}

// DeleteClient drops a client's whole knowledge base. Idempotent.
func (s *Store) DeleteClient(ctx context.Context, clientId string) error {
	s.mu.Lock()
	delete(s.clients, clientId)
	s.mu.Unlock()

	return s.blobs.DeleteClientSnapshot(ctx, clientId)
}

// Chunks returns the client's current read view. The returned slice is the
// immutable view itself; callers must not modify it.
func (s *Store) Chunks(clientId string) []Chunk {
	idx, ok := s.peek(clientId)
	if !ok {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.view.chunks
}

// Stats summarizes a client's knowledge base. Unknown clients report zeroes.
func (s *Store) Stats(clientId string) Stats {
	idx, ok := s.peek(clientId)
	if !ok {
		return Stats{}
	}
	idx.mu.RLock()
	view := idx.view
	idx.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, c := range view.chunks {
		docs[c.SourceDocumentId] = struct{}{}
	}
	return Stats{
		DocumentCount:  len(docs),
		ChunkCount:     len(view.chunks),
		LastIngestTime: view.lastIngest,
	}
}

// ClientIDs lists the clients currently indexed.
func (s *Store) ClientIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) persist(ctx context.Context, clientId string, view *clientView) error {
	snap := snapshotFile{
		ClientId:       clientId,
		Dims:           s.Dims(),
		SavedAt:        time.Now(),
		LastIngestTime: view.lastIngest,
		Chunks:         view.chunks,
	}

	if s.cache != nil {
		texts := make([]string, len(view.chunks))
		for i, c := range view.chunks {
			texts[i] = c.Content
		}
		snap.EmbeddingCache = s.cache.Export(texts)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", clientId, err)
	}
	if err := s.blobs.WriteClientSnapshot(ctx, clientId, data); err != nil {
		return fmt.Errorf("persist snapshot for %s: %w", clientId, err)
	}
	return nil
}
