package specification

import (
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByClientID struct {
	ClientID string
}

func (s ByClientID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("client_id = ?", s.ClientID)
}

type OrderByEndedAtDesc struct{}

func (s OrderByEndedAtDesc) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("ended_at DESC")
}
