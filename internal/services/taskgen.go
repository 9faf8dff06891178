package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

const (
	StrategyAdjacent = "adjacent"
	StrategyAllPairs = "all_pairs"

	defaultLimitImages = 50
	defaultMaxTasks    = 200
)

type GenerateRequest struct {
	StudyID     uuid.UUID
	Strategy    string
	LimitImages int
	MaxTasks    int
}

type GenerateResult struct {
	StudyID    uuid.UUID `json:"studyId"`
	Strategy   string    `json:"strategy"`
	ImageCount int       `json:"imageCount"`
	TaskCount  int       `json:"taskCount"`
	Deleted    int       `json:"deletedOld"`
	Created    int       `json:"created"`
}

// TaskGenService bulk-builds the pre-generated task queue for a study.
// Regeneration is destructive: the old set and the new set swap in one
// transaction, so a partial regeneration is never observable.
type TaskGenService interface {
	Regenerate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	List(ctx context.Context, studyID uuid.UUID, limit int) ([]*types.PairwiseTask, error)
}

type taskGenService struct {
	db        *gorm.DB
	log       *logger.Logger
	studyRepo repos.StudyRepo
	imageRepo repos.ImageRepo
	taskRepo  repos.PairwiseTaskRepo
	now       func() time.Time
}

func NewTaskGenService(db *gorm.DB, log *logger.Logger, studyRepo repos.StudyRepo, imageRepo repos.ImageRepo, taskRepo repos.PairwiseTaskRepo) TaskGenService {
	return &taskGenService{
		db:        db,
		log:       log.With("service", "TaskGenService"),
		studyRepo: studyRepo,
		imageRepo: imageRepo,
		taskRepo:  taskRepo,
		now:       time.Now,
	}
}

func (tg *taskGenService) Regenerate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyAdjacent
	}
	if strategy != StrategyAdjacent && strategy != StrategyAllPairs {
		return nil, apierr.InvalidInputf("unknown strategy %q", strategy)
	}
	limitImages := req.LimitImages
	if limitImages <= 0 {
		limitImages = defaultLimitImages
	}
	maxTasks := req.MaxTasks
	if maxTasks <= 0 {
		maxTasks = defaultMaxTasks
	}

	exists, err := tg.studyRepo.Exists(ctx, nil, req.StudyID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if !exists {
		return nil, apierr.NotFoundf("study not found")
	}

	images, err := tg.imageRepo.ListRecent(ctx, nil, limitImages)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(images) < 2 {
		return nil, apierr.InsufficientPool(errNotEnoughImages)
	}

	ids := make([]uuid.UUID, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	pairs := buildPairs(ids, strategy, maxTasks)

	batchSeed := tg.now().UnixMilli()
	tasks := make([]*types.PairwiseTask, 0, len(pairs))
	for i, p := range pairs {
		tasks = append(tasks, &types.PairwiseTask{
			StudyID:      req.StudyID,
			LeftImageID:  p[0],
			RightImageID: p[1],
			SamplingSeed: fmt.Sprintf("%d-%d", batchSeed, i),
		})
	}

	var deleted int64
	err = tg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = tg.taskRepo.DeleteByStudy(ctx, tx, req.StudyID)
		if err != nil {
			return err
		}
		_, err = tg.taskRepo.Create(ctx, tx, tasks)
		return err
	})
	if err != nil {
		return nil, apierr.FromDB(err)
	}

	tg.log.Info("pairwise tasks regenerated",
		"study_id", req.StudyID, "strategy", strategy,
		"deleted", deleted, "created", len(tasks))

	return &GenerateResult{
		StudyID:    req.StudyID,
		Strategy:   strategy,
		ImageCount: len(ids),
		TaskCount:  len(pairs),
		Deleted:    int(deleted),
		Created:    len(tasks),
	}, nil
}

func (tg *taskGenService) List(ctx context.Context, studyID uuid.UUID, limit int) ([]*types.PairwiseTask, error) {
	tasks, err := tg.taskRepo.ListByStudy(ctx, nil, studyID, limit)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	return tasks, nil
}

// buildPairs emits comparison pairs from images in recency order.
// adjacent: (i, i+1) pairs; all_pairs: every (i, j) with i < j. Both stop
// at maxTasks.
func buildPairs(ids []uuid.UUID, strategy string, maxTasks int) [][2]uuid.UUID {
	var pairs [][2]uuid.UUID
	if strategy == StrategyAllPairs {
		for i := 0; i < len(ids) && len(pairs) < maxTasks; i++ {
			for j := i + 1; j < len(ids) && len(pairs) < maxTasks; j++ {
				pairs = append(pairs, [2]uuid.UUID{ids[i], ids[j]})
			}
		}
		return pairs
	}
	for i := 0; i+1 < len(ids) && len(pairs) < maxTasks; i++ {
		pairs = append(pairs, [2]uuid.UUID{ids[i], ids[i+1]})
	}
	return pairs
}
