package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type StudyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, studies []*types.Study) ([]*types.Study, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) ([]*types.Study, error)
	Exists(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (bool, error)
	List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Study, error)
}

type studyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	return &studyRepo{db: db, log: baseLog.With("repo", "StudyRepo")}
}

func (sr *studyRepo) Create(ctx context.Context, tx *gorm.DB, studies []*types.Study) ([]*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(studies) == 0 {
		return []*types.Study{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

func (sr *studyRepo) GetByIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) ([]*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Study
	if len(studyIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", studyIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *studyRepo) Exists(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Study{}).
		Where("id = ?", studyID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *studyRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if limit <= 0 {
		limit = 200
	}

	var results []*types.Study
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
