package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionRecord is the archived form of a finished voice session.
type SessionRecord struct {
	Id               uuid.UUID
	SessionId        string
	ClientId         string
	Mode             string
	StartedAt        time.Time
	EndedAt          time.Time
	InteractionCount int
	ErrorCounts      map[string]int
	Turns            []TurnRecord
	CreatedAt        time.Time
}

// TurnRecord is one archived exchange, optionally with the transcript
// embedding for later semantic search over past conversations.
type TurnRecord struct {
	Id                  uuid.UUID
	SessionRecordId     uuid.UUID
	SpeakerId           string
	Transcript          string
	ResponseText        string
	TranscriptEmbedding []float32
	SequenceIndex       int
	OccurredAt          time.Time
}
