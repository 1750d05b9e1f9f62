package mapper

import (
	"encoding/json"

	"voicepilot-be/internal/entity"
	"voicepilot-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type SessionRecordMapper struct{}

func NewSessionRecordMapper() *SessionRecordMapper {
	return &SessionRecordMapper{}
}

func (m *SessionRecordMapper) RecordToModel(e *entity.SessionRecord) *model.SessionRecord {
	if e == nil {
		return nil
	}

	var errCounts []byte
	if len(e.ErrorCounts) > 0 {
		errCounts, _ = json.Marshal(e.ErrorCounts)
	}

	return &model.SessionRecord{
		Id:               e.Id,
		SessionId:        e.SessionId,
		ClientId:         e.ClientId,
		Mode:             e.Mode,
		StartedAt:        e.StartedAt,
		EndedAt:          e.EndedAt,
		InteractionCount: e.InteractionCount,
		ErrorCounts:      errCounts,
	}
}

func (m *SessionRecordMapper) RecordToEntity(s *model.SessionRecord, turns []*model.TurnRecord) *entity.SessionRecord {
	if s == nil {
		return nil
	}

	var errCounts map[string]int
	if len(s.ErrorCounts) > 0 {
		_ = json.Unmarshal(s.ErrorCounts, &errCounts)
	}

	e := &entity.SessionRecord{
		Id:               s.Id,
		SessionId:        s.SessionId,
		ClientId:         s.ClientId,
		Mode:             s.Mode,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		InteractionCount: s.InteractionCount,
		ErrorCounts:      errCounts,
		CreatedAt:        s.CreatedAt,
	}
	for _, t := range turns {
		e.Turns = append(e.Turns, *m.TurnToEntity(t))
	}
	return e
}

func (m *SessionRecordMapper) TurnToModel(e *entity.TurnRecord) *model.TurnRecord {
	if e == nil {
		return nil
	}

	var emb *pgvector.Vector
	if len(e.TranscriptEmbedding) > 0 {
		v := pgvector.NewVector(e.TranscriptEmbedding)
		emb = &v
	}

	return &model.TurnRecord{
		Id:                  e.Id,
		SessionRecordId:     e.SessionRecordId,
		SpeakerId:           e.SpeakerId,
		Transcript:          e.Transcript,
		ResponseText:        e.ResponseText,
		TranscriptEmbedding: emb,
		SequenceIndex:       e.SequenceIndex,
		OccurredAt:          e.OccurredAt,
	}
}

func (m *SessionRecordMapper) TurnToEntity(s *model.TurnRecord) *entity.TurnRecord {
	if s == nil {
		return nil
	}

	var emb []float32
	if s.TranscriptEmbedding != nil {
		emb = s.TranscriptEmbedding.Slice()
	}

	return &entity.TurnRecord{
		Id:                  s.Id,
		SessionRecordId:     s.SessionRecordId,
		SpeakerId:           s.SpeakerId,
		Transcript:          s.Transcript,
		ResponseText:        s.ResponseText,
		TranscriptEmbedding: emb,
		SequenceIndex:       s.SequenceIndex,
		OccurredAt:          s.OccurredAt,
	}
}
