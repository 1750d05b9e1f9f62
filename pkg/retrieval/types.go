package retrieval

import "time"

// Document source enum values.
const (
	SourceManual = "manual"
	SourceAPI    = "api"
	SourceUpload = "upload"
)

// Document is the unit of ingestion. Immutable once stored except via
// explicit delete and re-add.
type Document struct {
	Id       string            `json:"id"`
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Chunk is one embedded window of a document. Never mutated after ingest.
type Chunk struct {
	Content          string            `json:"content"`
	SequenceIndex    int               `json:"sequence_index"`
	SourceDocumentId string            `json:"source_document_id"`
	Embedding        []float32         `json:"embedding"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// Stats summarizes one client's knowledge base.
type Stats struct {
	DocumentCount  int       `json:"document_count"`
	ChunkCount     int       `json:"chunk_count"`
	LastIngestTime time.Time `json:"last_ingest_time"`
}
