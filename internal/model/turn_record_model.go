package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type TurnRecord struct {
	Id                  uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionRecordId     uuid.UUID        `gorm:"type:uuid;not null;index"`
	SpeakerId           string           `gorm:"type:text"`
	Transcript          string           `gorm:"type:text;not null"`
	ResponseText        string           `gorm:"type:text"`
	TranscriptEmbedding *pgvector.Vector `gorm:"type:vector(768)"` // NULL when the embedding was never computed
	SequenceIndex       int              `gorm:"default:0"`        // 0-based order within the session
	OccurredAt          time.Time        `gorm:"not null"`
	CreatedAt           time.Time        `gorm:"autoCreateTime"`
}

func (TurnRecord) TableName() string {
	return "turn_records"
}
