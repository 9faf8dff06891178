package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type InvitationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, invitations []*types.StudyInvitation) ([]*types.StudyInvitation, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.StudyInvitation, error)
	// ConsumeUse increments used_count only while uses remain. Returns false
	// when the guard rejects the increment, which callers must translate to
	// an exhausted-uses failure and roll the surrounding transaction back.
	ConsumeUse(ctx context.Context, tx *gorm.DB, invitationID uuid.UUID) (bool, error)
	ListByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]*types.StudyInvitation, error)
}

type invitationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInvitationRepo(db *gorm.DB, baseLog *logger.Logger) InvitationRepo {
	return &invitationRepo{db: db, log: baseLog.With("repo", "InvitationRepo")}
}

func (ir *invitationRepo) Create(ctx context.Context, tx *gorm.DB, invitations []*types.StudyInvitation) ([]*types.StudyInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(invitations) == 0 {
		return []*types.StudyInvitation{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (ir *invitationRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.StudyInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var result types.StudyInvitation
	err := transaction.WithContext(ctx).
		Where("token = ?", token).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ir *invitationRepo) ConsumeUse(ctx context.Context, tx *gorm.DB, invitationID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	// Single conditional UPDATE so two concurrent redemptions cannot both
	// observe a remaining use when only one is left.
	res := transaction.WithContext(ctx).
		Model(&types.StudyInvitation{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", invitationID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (ir *invitationRepo) ListByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]*types.StudyInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.StudyInvitation
	if err := transaction.WithContext(ctx).
		Where("study_id = ?", studyID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
