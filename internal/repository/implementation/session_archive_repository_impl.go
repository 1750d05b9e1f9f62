package implementation

import (
	"context"
	"errors"

	"voicepilot-be/internal/entity"
	"voicepilot-be/internal/mapper"
	"voicepilot-be/internal/model"
	"voicepilot-be/internal/repository/contract"
	"voicepilot-be/internal/repository/specification"

	"gorm.io/gorm"
)

type SessionArchiveRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionRecordMapper
}

func NewSessionArchiveRepository(db *gorm.DB) contract.SessionArchiveRepository {
	return &SessionArchiveRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionRecordMapper(),
	}
}

func (r *SessionArchiveRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionArchiveRepositoryImpl) Create(ctx context.Context, record *entity.SessionRecord) error {
	m := r.mapper.RecordToModel(record)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		for i := range record.Turns {
			record.Turns[i].SessionRecordId = m.Id
			record.Turns[i].SequenceIndex = i
			tm := r.mapper.TurnToModel(&record.Turns[i])
			if err := tx.Create(tm).Error; err != nil {
				return err
			}
			record.Turns[i].Id = tm.Id
		}

		record.Id = m.Id
		record.CreatedAt = m.CreatedAt
		return nil
	})
}

func (r *SessionArchiveRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionRecord, error) {
	var m model.SessionRecord
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var turns []*model.TurnRecord
	if err := r.db.WithContext(ctx).
		Where("session_record_id = ?", m.Id).
		Order("sequence_index ASC").
		Find(&turns).Error; err != nil {
		return nil, err
	}

	return r.mapper.RecordToEntity(&m, turns), nil
}

func (r *SessionArchiveRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionRecord, error) {
	var models []*model.SessionRecord
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	// Turns are intentionally not loaded here; list views only need headers.
	records := make([]*entity.SessionRecord, len(models))
	for i, m := range models {
		records[i] = r.mapper.RecordToEntity(m, nil)
	}
	return records, nil
}

func (r *SessionArchiveRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.SessionRecord{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
