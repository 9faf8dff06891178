package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type VisionTestResultRepo interface {
	Create(ctx context.Context, tx *gorm.DB, results []*types.VisionTestResult) ([]*types.VisionTestResult, error)
	// LatestForUser returns the most recent attempt by tested_at, or nil.
	LatestForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.VisionTestResult, error)
	LatestForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.VisionTestResult, error)
}

type visionTestResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVisionTestResultRepo(db *gorm.DB, baseLog *logger.Logger) VisionTestResultRepo {
	return &visionTestResultRepo{db: db, log: baseLog.With("repo", "VisionTestResultRepo")}
}

func (vr *visionTestResultRepo) Create(ctx context.Context, tx *gorm.DB, results []*types.VisionTestResult) ([]*types.VisionTestResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if len(results) == 0 {
		return []*types.VisionTestResult{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *visionTestResultRepo) LatestForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.VisionTestResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result types.VisionTestResult
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("tested_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (vr *visionTestResultRepo) LatestForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.VisionTestResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result types.VisionTestResult
	err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("tested_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
