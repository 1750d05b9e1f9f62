// FILE: internal/service/archive_service.go
package service

import (
	"context"

	"voicepilot-be/internal/entity"
	"voicepilot-be/internal/pkg/logger"
	"voicepilot-be/internal/repository/contract"
	"voicepilot-be/pkg/embedding"
	"voicepilot-be/pkg/voice/session"

	"github.com/google/uuid"
)

// IArchiveService persists finished sessions. Implements
// orchestrator.Archiver.
type IArchiveService interface {
	Archive(ctx context.Context, snap session.Session, errorCounts map[string]int) error
}

type archiveService struct {
	repo  contract.SessionArchiveRepository
	cache *embedding.Cache // nil disables transcript embeddings
	log   logger.ILogger
}

func NewArchiveService(repo contract.SessionArchiveRepository, cache *embedding.Cache, log logger.ILogger) IArchiveService {
	return &archiveService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (s *archiveService) Archive(ctx context.Context, snap session.Session, errorCounts map[string]int) error {
	record := &entity.SessionRecord{
		Id:               uuid.New(),
		SessionId:        snap.SessionId,
		ClientId:         snap.ClientId,
		Mode:             string(snap.Config.ConversationMode),
		StartedAt:        snap.StartedAt,
		EndedAt:          snap.LastActivity,
		InteractionCount: len(snap.History),
		ErrorCounts:      errorCounts,
	}

	for i, turn := range snap.History {
		tr := entity.TurnRecord{
			Id:            uuid.New(),
			SpeakerId:     turn.SpeakerId,
			Transcript:    turn.Transcript,
			ResponseText:  turn.ResponseText,
			SequenceIndex: i,
			OccurredAt:    turn.Timestamp,
		}

		// Best effort: most transcripts were already embedded during the
		// session, so this is usually a cache hit.
		if s.cache != nil {
			if vec, err := s.cache.Get(ctx, turn.Transcript); err == nil {
				tr.TranscriptEmbedding = vec
			}
		}

		record.Turns = append(record.Turns, tr)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.log.Error("ArchiveService", "Failed to archive session", map[string]interface{}{
			"session_id": snap.SessionId,
			"error":      err.Error(),
		})
		return err
	}

	s.log.Info("ArchiveService", "Session archived", map[string]interface{}{
		"session_id": snap.SessionId,
		"turns":      len(record.Turns),
	})
	return nil
}
