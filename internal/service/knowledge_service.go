// FILE: internal/service/knowledge_service.go
package service

import (
	"context"

	"voicepilot-be/internal/dto"
	"voicepilot-be/internal/pkg/logger"
	pktEvents "voicepilot-be/pkg/events"
	pktNats "voicepilot-be/pkg/nats"
	"voicepilot-be/pkg/retrieval"
)

type IKnowledgeService interface {
	Initialize(ctx context.Context, clientId string, req *dto.InitializeKnowledgeRequest) (*dto.InitializeKnowledgeResponse, error)
	Ingest(ctx context.Context, clientId string, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	Query(ctx context.Context, clientId string, req *dto.QueryKnowledgeRequest) ([]dto.ScoredChunkResponse, error)
	DeleteDocument(ctx context.Context, clientId, documentId string) error
	DeleteClient(ctx context.Context, clientId string) error
	Stats(ctx context.Context, clientId string) (*dto.KnowledgeStatsResponse, error)
	StatsAll(ctx context.Context) (*dto.AllKnowledgeStatsResponse, error)
}

type knowledgeService struct {
	engine    *retrieval.Engine
	publisher *pktNats.Publisher // nil when NATS is not configured
	logger    logger.ILogger
}

func NewKnowledgeService(engine *retrieval.Engine, publisher *pktNats.Publisher, log logger.ILogger) IKnowledgeService {
	return &knowledgeService{
		engine:    engine,
		publisher: publisher,
		logger:    log,
	}
}

// Initialize replaces the client's knowledge base in one call.
func (s *knowledgeService) Initialize(ctx context.Context, clientId string, req *dto.InitializeKnowledgeRequest) (*dto.InitializeKnowledgeResponse, error) {
	docs := make([]retrieval.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		source := d.Source
		if source == "" {
			source = retrieval.SourceAPI
		}
		docs = append(docs, retrieval.Document{
			Id:       d.DocumentId,
			Content:  d.Content,
			Source:   source,
			Metadata: d.Metadata,
		})
	}

	chunkCount, err := s.engine.Initialize(ctx, clientId, docs)
	if err != nil {
		s.logger.Error("KnowledgeService", "Initialize failed", map[string]interface{}{
			"client_id": clientId,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.publishEvent(ctx, pktEvents.TypeDocumentIngested, map[string]interface{}{
		"client_id":      clientId,
		"document_count": len(docs),
		"chunk_count":    chunkCount,
		"initialized":    true,
	})

	return &dto.InitializeKnowledgeResponse{
		DocumentCount: len(docs),
		ChunkCount:    chunkCount,
	}, nil
}

func (s *knowledgeService) Ingest(ctx context.Context, clientId string, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	source := req.Source
	if source == "" {
		source = retrieval.SourceAPI
	}

	chunkCount, err := s.engine.Ingest(ctx, clientId, retrieval.Document{
		Id:       req.DocumentId,
		Content:  req.Content,
		Source:   source,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.logger.Error("KnowledgeService", "Ingest failed", map[string]interface{}{
			"client_id":   clientId,
			"document_id": req.DocumentId,
			"error":       err.Error(),
		})
		return nil, err
	}

	s.publishEvent(ctx, pktEvents.TypeDocumentIngested, map[string]interface{}{
		"client_id":   clientId,
		"document_id": req.DocumentId,
		"chunk_count": chunkCount,
	})

	return &dto.IngestDocumentResponse{
		DocumentId: req.DocumentId,
		ChunkCount: chunkCount,
	}, nil
}

func (s *knowledgeService) Query(ctx context.Context, clientId string, req *dto.QueryKnowledgeRequest) ([]dto.ScoredChunkResponse, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	minSimilarity := float32(req.MinSimilarity)
	if minSimilarity <= 0 {
		minSimilarity = retrieval.DefaultMinSimilarity
	}

	scored, err := s.engine.Query(ctx, clientId, req.Query, topK, minSimilarity)
	if err != nil {
		return nil, err
	}

	// Empty result is a valid answer, not an error.
	res := make([]dto.ScoredChunkResponse, 0, len(scored))
	for _, sc := range scored {
		res = append(res, dto.ScoredChunkResponse{
			Content:          sc.Chunk.Content,
			Score:            float64(sc.Score),
			SequenceIndex:    sc.Chunk.SequenceIndex,
			SourceDocumentId: sc.Chunk.SourceDocumentId,
			Metadata:         sc.Chunk.Metadata,
		})
	}
	return res, nil
}

func (s *knowledgeService) DeleteDocument(ctx context.Context, clientId, documentId string) error {
	if err := s.engine.DeleteDocument(ctx, clientId, documentId); err != nil {
		return err
	}
	s.publishEvent(ctx, pktEvents.TypeDocumentDeleted, map[string]interface{}{
		"client_id":   clientId,
		"document_id": documentId,
	})
	return nil
}

func (s *knowledgeService) DeleteClient(ctx context.Context, clientId string) error {
	if err := s.engine.DeleteClient(ctx, clientId); err != nil {
		return err
	}
	s.publishEvent(ctx, pktEvents.TypeClientDeleted, map[string]interface{}{
		"client_id": clientId,
	})
	return nil
}

func (s *knowledgeService) Stats(ctx context.Context, clientId string) (*dto.KnowledgeStatsResponse, error) {
	stats := s.engine.Stats(ctx, clientId)
	return statsResponse(clientId, stats), nil
}

func (s *knowledgeService) StatsAll(ctx context.Context) (*dto.AllKnowledgeStatsResponse, error) {
	res := &dto.AllKnowledgeStatsResponse{
		PerClient: make(map[string]dto.KnowledgeStatsResponse),
	}
	for _, clientId := range s.engine.ClientIDs() {
		stats := s.engine.Stats(ctx, clientId)
		res.PerClient[clientId] = *statsResponse(clientId, stats)
		res.TotalDocuments += stats.DocumentCount
		res.TotalChunks += stats.ChunkCount
	}
	return res, nil
}

func (s *knowledgeService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, pktEvents.New(eventType, data)); err != nil {
		s.logger.Warn("KnowledgeService", "Event publish failed", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

func statsResponse(clientId string, stats retrieval.Stats) *dto.KnowledgeStatsResponse {
	res := &dto.KnowledgeStatsResponse{
		ClientId:      clientId,
		DocumentCount: stats.DocumentCount,
		ChunkCount:    stats.ChunkCount,
	}
	if !stats.LastIngestTime.IsZero() {
		t := stats.LastIngestTime
		res.LastIngestTime = &t
	}
	return res
}
