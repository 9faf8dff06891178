package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type PairwiseEvaluationRepo interface {
	// Create inserts one evaluation. A duplicate (session_id, task_id) is
	// rejected by the unique index and surfaces as an apierr conflict; the
	// application never does check-then-insert here.
	Create(ctx context.Context, tx *gorm.DB, evaluation *types.PairwiseEvaluation) (*types.PairwiseEvaluation, error)
	CountForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
}

type pairwiseEvaluationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPairwiseEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) PairwiseEvaluationRepo {
	return &pairwiseEvaluationRepo{db: db, log: baseLog.With("repo", "PairwiseEvaluationRepo")}
}

func (per *pairwiseEvaluationRepo) Create(ctx context.Context, tx *gorm.DB, evaluation *types.PairwiseEvaluation) (*types.PairwiseEvaluation, error) {
	transaction := tx
	if transaction == nil {
		transaction = per.db
	}

	if err := transaction.WithContext(ctx).Create(evaluation).Error; err != nil {
		return nil, apierr.FromDB(err)
	}
	return evaluation, nil
}

func (per *pairwiseEvaluationRepo) CountForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = per.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.PairwiseEvaluation{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
