package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type ObserverProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profiles []*types.ObserverProfile) ([]*types.ObserverProfile, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, profileIDs []uuid.UUID) ([]*types.ObserverProfile, error)
}

type observerProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewObserverProfileRepo(db *gorm.DB, baseLog *logger.Logger) ObserverProfileRepo {
	return &observerProfileRepo{db: db, log: baseLog.With("repo", "ObserverProfileRepo")}
}

func (opr *observerProfileRepo) Create(ctx context.Context, tx *gorm.DB, profiles []*types.ObserverProfile) ([]*types.ObserverProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = opr.db
	}

	if len(profiles) == 0 {
		return []*types.ObserverProfile{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (opr *observerProfileRepo) GetByIDs(ctx context.Context, tx *gorm.DB, profileIDs []uuid.UUID) ([]*types.ObserverProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = opr.db
	}

	var results []*types.ObserverProfile
	if len(profileIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", profileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
