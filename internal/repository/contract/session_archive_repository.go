package contract

import (
	"context"

	"voicepilot-be/internal/entity"
	"voicepilot-be/internal/repository/specification"
)

type SessionArchiveRepository interface {
	// Create persists the record and its turns in one transaction.
	Create(ctx context.Context, record *entity.SessionRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionRecord, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
