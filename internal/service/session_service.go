// FILE: internal/service/session_service.go
package service

import (
	"context"
	"time"

	"voicepilot-be/internal/dto"
	"voicepilot-be/internal/pkg/logger"
	"voicepilot-be/internal/repository/contract"
	"voicepilot-be/internal/repository/specification"
	"voicepilot-be/pkg/voice/orchestrator"
	"voicepilot-be/pkg/voice/session"
)

type ISessionService interface {
	Start(ctx context.Context, clientId string, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	ProcessInput(ctx context.Context, sessionId string, req *dto.ProcessInputRequest) (*dto.ProcessInputResponse, error)
	Pause(ctx context.Context, sessionId string) error
	Resume(ctx context.Context, sessionId string) error
	End(ctx context.Context, sessionId string) (*dto.SessionStatsResponse, error)
	Stats(ctx context.Context, sessionId string) (*dto.SessionStatsResponse, error)
	UpdateUIContext(ctx context.Context, sessionId string, uiCtx map[string]interface{}) error
}

type sessionService struct {
	orch    *orchestrator.Orchestrator
	archive contract.SessionArchiveRepository // nil when the server runs without a database
	logger  logger.ILogger
}

func NewSessionService(orch *orchestrator.Orchestrator, archive contract.SessionArchiveRepository, log logger.ILogger) ISessionService {
	return &sessionService{
		orch:    orch,
		archive: archive,
		logger:  log,
	}
}

func (s *sessionService) Start(ctx context.Context, clientId string, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	cfg := session.Config{
		VoiceModel:                  req.VoiceModel,
		Language:                    req.Language,
		EnableSpeakerIdentification: req.EnableSpeakerIdentification,
		EnableTurnManagement:        req.EnableTurnManagement,
		ConversationMode:            session.Mode(req.ConversationMode),
		IdleTimeout:                 time.Duration(req.IdleTimeoutSeconds) * time.Second,
	}

	snap, err := s.orch.Start(ctx, req.SessionId, clientId, cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("SessionService", "Session started", map[string]interface{}{
		"session_id": snap.SessionId,
		"client_id":  snap.ClientId,
	})

	return &dto.StartSessionResponse{
		SessionId: snap.SessionId,
		ClientId:  snap.ClientId,
		State:     string(snap.State),
		StartedAt: snap.StartedAt,
	}, nil
}

func (s *sessionService) ProcessInput(ctx context.Context, sessionId string, req *dto.ProcessInputRequest) (*dto.ProcessInputResponse, error) {
	result := s.orch.ProcessInput(ctx, sessionId, req.SpeakerId, req.Transcript)
	return dto.FromResult(result), nil
}

func (s *sessionService) Pause(ctx context.Context, sessionId string) error {
	return s.orch.Pause(sessionId)
}

func (s *sessionService) Resume(ctx context.Context, sessionId string) error {
	return s.orch.Resume(sessionId)
}

func (s *sessionService) End(ctx context.Context, sessionId string) (*dto.SessionStatsResponse, error) {
	stats, err := s.orch.End(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return statsToDto(stats, false), nil
}

// Stats serves live sessions from the orchestrator and falls back to the
// archive for sessions that already ended.
func (s *sessionService) Stats(ctx context.Context, sessionId string) (*dto.SessionStatsResponse, error) {
	stats, err := s.orch.Stats(sessionId)
	if err == nil {
		return statsToDto(stats, false), nil
	}
	if err != session.ErrSessionNotFound || s.archive == nil {
		return nil, err
	}

	record, archiveErr := s.archive.FindOne(ctx, specification.BySessionID{SessionID: sessionId}, specification.OrderByEndedAtDesc{})
	if archiveErr != nil {
		return nil, archiveErr
	}
	if record == nil {
		return nil, session.ErrSessionNotFound
	}

	perSpeaker := make(map[string]int)
	for _, t := range record.Turns {
		if t.SpeakerId != "" {
			perSpeaker[t.SpeakerId]++
		}
	}

	return &dto.SessionStatsResponse{
		SessionId:        record.SessionId,
		ClientId:         record.ClientId,
		State:            string(session.StateEnded),
		DurationSeconds:  record.EndedAt.Sub(record.StartedAt).Seconds(),
		InteractionCount: record.InteractionCount,
		PerSpeakerCounts: perSpeaker,
		ErrorCounts:      record.ErrorCounts,
		Archived:         true,
	}, nil
}

func (s *sessionService) UpdateUIContext(ctx context.Context, sessionId string, uiCtx map[string]interface{}) error {
	return s.orch.UpdateUIContext(sessionId, uiCtx)
}

func statsToDto(stats session.Stats, archived bool) *dto.SessionStatsResponse {
	return &dto.SessionStatsResponse{
		SessionId:        stats.SessionId,
		ClientId:         stats.ClientId,
		State:            string(stats.State),
		DurationSeconds:  stats.Duration.Seconds(),
		InteractionCount: stats.InteractionCount,
		PerSpeakerCounts: stats.PerSpeakerCounts,
		ErrorCounts:      stats.ErrorCounts,
		Archived:         archived,
	}
}
