package dto

import (
	"time"
)

type IngestDocumentRequest struct {
	DocumentId string            `json:"document_id" validate:"required,max=128"`
	Content    string            `json:"content" validate:"required"`
	Source     string            `json:"source,omitempty" validate:"omitempty,oneof=manual api upload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type InitializeKnowledgeRequest struct {
	Documents []IngestDocumentRequest `json:"documents" validate:"required,min=1,dive"`
}

type InitializeKnowledgeResponse struct {
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
}

type IngestDocumentResponse struct {
	DocumentId string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

type QueryKnowledgeRequest struct {
	Query         string  `json:"query" validate:"required"`
	TopK          int     `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
	MinSimilarity float64 `json:"min_similarity,omitempty" validate:"omitempty,min=0,max=1"`
}

type ScoredChunkResponse struct {
	Content          string            `json:"content"`
	Score            float64           `json:"score"`
	SequenceIndex    int               `json:"sequence_index"`
	SourceDocumentId string            `json:"source_document_id"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type KnowledgeStatsResponse struct {
	ClientId       string     `json:"client_id,omitempty"`
	DocumentCount  int        `json:"document_count"`
	ChunkCount     int        `json:"chunk_count"`
	LastIngestTime *time.Time `json:"last_ingest_time,omitempty"`
}

type AllKnowledgeStatsResponse struct {
	TotalDocuments int                               `json:"total_documents"`
	TotalChunks    int                               `json:"total_chunks"`
	PerClient      map[string]KnowledgeStatsResponse `json:"per_client"`
}
