package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config sizes the archive connection pool. Archival traffic is bursty —
// sessions write once on end — so the defaults stay small.
type Config struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

const (
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 20
	defaultConnMaxLifetime = 30 * time.Minute
)

// Open connects to the session archive database.
func Open(cfg Config) (*gorm.DB, error) {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnMaxLifetime
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: archiveLogger(cfg.LogQueries),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// archiveLogger keeps the query log quiet in normal operation; LogQueries
// turns on full statement logging for migrations and debugging. Parameters
// are always elided because turn transcripts pass through these statements.
func archiveLogger(logQueries bool) logger.Interface {
	level := logger.Warn
	if logQueries {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "[ARCHIVE-DB] ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)
}
