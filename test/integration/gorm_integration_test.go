package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"voicepilot-be/internal/entity"
	"voicepilot-be/internal/model"
	"voicepilot-be/internal/repository/implementation"
	"voicepilot-be/internal/repository/specification"
	"voicepilot-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormSessionArchive(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.Open(database.Config{DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	err = gormDB.AutoMigrate(&model.SessionRecord{}, &model.TurnRecord{})
	assert.NoError(t, err)

	repo := implementation.NewSessionArchiveRepository(gormDB)
	ctx := context.Background()

	// The turn_records embedding column is vector(768), so the test
	// embedding has to match that dimensionality.
	emb := make([]float32, 768)
	emb[0] = 0.1
	emb[1] = 0.2

	sessionId := "it-" + uuid.New().String()
	started := time.Now().Add(-2 * time.Minute).Truncate(time.Millisecond)
	ended := time.Now().Truncate(time.Millisecond)

	record := &entity.SessionRecord{
		Id:               uuid.New(),
		SessionId:        sessionId,
		ClientId:         "integration-client",
		Mode:             "SINGLE_SPEAKER",
		StartedAt:        started,
		EndedAt:          ended,
		InteractionCount: 2,
		ErrorCounts:      map[string]int{"TTS_FAILED": 1},
		Turns: []entity.TurnRecord{
			{
				Id:                  uuid.New(),
				SpeakerId:           "alice",
				Transcript:          "What is the return policy?",
				ResponseText:        "Returns are accepted within 30 days.",
				TranscriptEmbedding: emb,
				OccurredAt:          started.Add(10 * time.Second),
			},
			{
				Id:           uuid.New(),
				SpeakerId:    "alice",
				Transcript:   "Thanks, end session",
				ResponseText: "Session ended. Goodbye!",
				OccurredAt:   started.Add(40 * time.Second),
			},
		},
	}

	t.Run("Create record with turns in transaction", func(t *testing.T) {
		err := repo.Create(ctx, record)
		assert.NoError(t, err)
	})

	t.Run("FindOne loads turns ordered by sequence", func(t *testing.T) {
		found, err := repo.FindOne(ctx, specification.BySessionID{SessionID: sessionId})
		assert.NoError(t, err)
		if !assert.NotNil(t, found) {
			return
		}

		assert.Equal(t, "integration-client", found.ClientId)
		assert.Equal(t, 2, found.InteractionCount)
		assert.Equal(t, 1, found.ErrorCounts["TTS_FAILED"])
		if assert.Len(t, found.Turns, 2) {
			assert.Equal(t, "What is the return policy?", found.Turns[0].Transcript)
			assert.Equal(t, 0, found.Turns[0].SequenceIndex)
			assert.Equal(t, 1, found.Turns[1].SequenceIndex)
			// First turn carries an embedding, second does not
			assert.Len(t, found.Turns[0].TranscriptEmbedding, 768)
			assert.Empty(t, found.Turns[1].TranscriptEmbedding)
		}
	})

	t.Run("FindOne returns nil for unknown session", func(t *testing.T) {
		found, err := repo.FindOne(ctx, specification.BySessionID{SessionID: "no-such-session"})
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Count by client", func(t *testing.T) {
		count, err := repo.Count(ctx, specification.ByClientID{ClientID: "integration-client"})
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))
	})

	t.Run("FindAll newest first", func(t *testing.T) {
		all, err := repo.FindAll(ctx,
			specification.ByClientID{ClientID: "integration-client"},
			specification.OrderByEndedAtDesc{},
		)
		assert.NoError(t, err)
		assert.NotEmpty(t, all)
	})

	// Cleanup test rows
	gormDB.Exec("DELETE FROM turn_records WHERE session_record_id = ?", record.Id)
	gormDB.Exec("DELETE FROM session_records WHERE id = ?", record.Id)
}
