package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type PairwiseTaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tasks []*types.PairwiseTask) ([]*types.PairwiseTask, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.PairwiseTask, error)
	// FirstUnevaluated returns the study's oldest task with no evaluation
	// row for the given session, or nil when the queue is drained.
	FirstUnevaluated(ctx context.Context, tx *gorm.DB, studyID, sessionID uuid.UUID) (*types.PairwiseTask, error)
	DeleteByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (int64, error)
	ListByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID, limit int) ([]*types.PairwiseTask, error)
}

type pairwiseTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPairwiseTaskRepo(db *gorm.DB, baseLog *logger.Logger) PairwiseTaskRepo {
	return &pairwiseTaskRepo{db: db, log: baseLog.With("repo", "PairwiseTaskRepo")}
}

func (ptr *pairwiseTaskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.PairwiseTask) ([]*types.PairwiseTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = ptr.db
	}

	if len(tasks) == 0 {
		return []*types.PairwiseTask{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (ptr *pairwiseTaskRepo) GetByIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.PairwiseTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = ptr.db
	}

	var results []*types.PairwiseTask
	if len(taskIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", taskIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ptr *pairwiseTaskRepo) FirstUnevaluated(ctx context.Context, tx *gorm.DB, studyID, sessionID uuid.UUID) (*types.PairwiseTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = ptr.db
	}

	var result types.PairwiseTask
	err := transaction.WithContext(ctx).
		Where(`study_id = ? AND NOT EXISTS (
			SELECT 1 FROM pairwise_evaluation
			WHERE pairwise_evaluation.task_id = pairwise_task.id
			AND pairwise_evaluation.session_id = ?
		)`, studyID, sessionID).
		Order("created_at ASC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ptr *pairwiseTaskRepo) DeleteByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ptr.db
	}

	res := transaction.WithContext(ctx).
		Where("study_id = ?", studyID).
		Delete(&types.PairwiseTask{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (ptr *pairwiseTaskRepo) ListByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID, limit int) ([]*types.PairwiseTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = ptr.db
	}

	if limit <= 0 {
		limit = 200
	}

	var results []*types.PairwiseTask
	if err := transaction.WithContext(ctx).
		Where("study_id = ?", studyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
