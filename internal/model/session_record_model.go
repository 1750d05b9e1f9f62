package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionRecord struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        string         `gorm:"type:text;not null;index"`
	ClientId         string         `gorm:"type:text;not null;index"`
	Mode             string         `gorm:"type:text"`
	StartedAt        time.Time      `gorm:"not null"`
	EndedAt          time.Time      `gorm:"not null"`
	InteractionCount int            `gorm:"default:0"`
	ErrorCounts      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (SessionRecord) TableName() string {
	return "session_records"
}
