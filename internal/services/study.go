package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

// StudyService is thin plumbing: studies are owned by an administrative
// collaborator, the engine only needs them to exist as FK targets.
type StudyService interface {
	Create(ctx context.Context, name, studyType string) (*types.Study, error)
	List(ctx context.Context, limit int) ([]*types.Study, error)
}

type studyService struct {
	db        *gorm.DB
	log       *logger.Logger
	studyRepo repos.StudyRepo
}

func NewStudyService(db *gorm.DB, log *logger.Logger, studyRepo repos.StudyRepo) StudyService {
	return &studyService{
		db:        db,
		log:       log.With("service", "StudyService"),
		studyRepo: studyRepo,
	}
}

func (ss *studyService) Create(ctx context.Context, name, studyType string) (*types.Study, error) {
	if name == "" {
		return nil, apierr.InvalidInputf("name required")
	}
	if studyType == "" {
		studyType = types.StudyTypePairwise
	}
	study := &types.Study{
		Name:      name,
		StudyType: studyType,
		Status:    types.StudyStatusActive,
	}
	if _, err := ss.studyRepo.Create(ctx, nil, []*types.Study{study}); err != nil {
		return nil, apierr.FromDB(err)
	}
	return study, nil
}

func (ss *studyService) List(ctx context.Context, limit int) ([]*types.Study, error) {
	studies, err := ss.studyRepo.List(ctx, nil, limit)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	return studies, nil
}
