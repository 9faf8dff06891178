package services

import (
	"context"
	"math/rand"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

type ImageRef struct {
	ID                uuid.UUID `json:"id"`
	StudyInstanceUID  string    `json:"studyInstanceUID"`
	SeriesInstanceUID string    `json:"seriesInstanceUID"`
	SOPInstanceUID    string    `json:"sopInstanceUID"`
}

type SeriesContext struct {
	SeriesInstanceUID string `json:"seriesInstanceUID"`
	StudyInstanceUID  string `json:"studyInstanceUID"`
}

type DICOMWebInfo struct {
	BaseURL string `json:"baseUrl"`
}

// PoolTask is a freshly materialized comparison for the anonymous flow.
type PoolTask struct {
	TaskID        uuid.UUID     `json:"taskId"`
	DICOMWeb      DICOMWebInfo  `json:"dicomWeb"`
	SeriesContext SeriesContext `json:"seriesContext"`
	Left          ImageRef      `json:"left"`
	Right         ImageRef      `json:"right"`
}

// QueueNext is the pre-generated-queue answer: either a task or done.
type QueueNext struct {
	SessionID uuid.UUID           `json:"sessionId"`
	Task      *types.PairwiseTask `json:"task,omitempty"`
	Done      bool                `json:"done"`
}

type SeriesInstance struct {
	SOPInstanceUID string  `json:"sopInstanceUID"`
	InstanceNumber *string `json:"instanceNumber"`
}

type SeriesInstances struct {
	DICOMWeb          DICOMWebInfo     `json:"dicomWeb"`
	SeriesInstanceUID string           `json:"seriesInstanceUID"`
	Instances         []SeriesInstance `json:"instances"`
}

// SamplerService produces the next comparison task for a session.
//
// Two strategies exist on purpose. The pool mode materializes a random
// same-series pair per call (at-least-once issuance: unanswered calls pile
// up extra tasks, which is fine — the evaluation unique index is the
// correctness boundary, not task count). The queue mode walks a
// pre-generated task set in creation order. Vision-gate verdicts are never
// consulted in either path.
type SamplerService interface {
	NextForSession(ctx context.Context, sessionID uuid.UUID) (*PoolTask, error)
	NextFromQueue(ctx context.Context, studyID, userID uuid.UUID) (*QueueNext, error)
	ListInstances(ctx context.Context, sessionID uuid.UUID, seriesUID string) (*SeriesInstances, error)
}

type samplerService struct {
	db              *gorm.DB
	log             *logger.Logger
	sessionRepo     repos.SessionRepo
	imageRepo       repos.ImageRepo
	taskRepo        repos.PairwiseTaskRepo
	dicomWebBaseURL string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSamplerService takes an explicit random source so tests can pin the
// draw sequence; production wiring seeds it from the clock.
func NewSamplerService(
	db *gorm.DB,
	log *logger.Logger,
	sessionRepo repos.SessionRepo,
	imageRepo repos.ImageRepo,
	taskRepo repos.PairwiseTaskRepo,
	dicomWebBaseURL string,
	rng *rand.Rand,
) SamplerService {
	return &samplerService{
		db:              db,
		log:             log.With("service", "SamplerService"),
		sessionRepo:     sessionRepo,
		imageRepo:       imageRepo,
		taskRepo:        taskRepo,
		dicomWebBaseURL: dicomWebBaseURL,
		rng:             rng,
	}
}

func (sp *samplerService) intn(n int) int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.rng.Intn(n)
}

func (sp *samplerService) seed() string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return strconv.FormatInt(sp.rng.Int63(), 10)
}

func (sp *samplerService) NextForSession(ctx context.Context, sessionID uuid.UUID) (*PoolTask, error) {
	sessions, err := sp.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(sessions) == 0 {
		return nil, apierr.NotFoundf("session not found")
	}
	session := sessions[0]

	images, err := sp.imageRepo.FindReadyByStudy(ctx, nil, session.StudyID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}

	left, right, err := sp.samplePair(images)
	if err != nil {
		return nil, err
	}

	task := &types.PairwiseTask{
		StudyID:      session.StudyID,
		LeftImageID:  left.ID,
		RightImageID: right.ID,
		SamplingSeed: sp.seed(),
	}
	if _, err := sp.taskRepo.Create(ctx, nil, []*types.PairwiseTask{task}); err != nil {
		return nil, apierr.FromDB(err)
	}

	return &PoolTask{
		TaskID:   task.ID,
		DICOMWeb: DICOMWebInfo{BaseURL: sp.dicomWebBaseURL},
		SeriesContext: SeriesContext{
			SeriesInstanceUID: *left.SeriesInstanceUID,
			StudyInstanceUID:  *left.StudyInstanceUID,
		},
		Left:  imageRef(left),
		Right: imageRef(right),
	}, nil
}

// samplePair picks a random eligible series (>= 2 ready members), then two
// distinct members of it, rejection-resampling the right side on collision.
func (sp *samplerService) samplePair(images []*types.ImageAsset) (*types.ImageAsset, *types.ImageAsset, error) {
	bySeries := make(map[string][]*types.ImageAsset)
	var order []string
	for _, img := range images {
		if !img.Ready() {
			continue
		}
		key := *img.SeriesInstanceUID
		if _, seen := bySeries[key]; !seen {
			order = append(order, key)
		}
		bySeries[key] = append(bySeries[key], img)
	}

	var eligible []string
	for _, key := range order {
		if len(bySeries[key]) >= 2 {
			eligible = append(eligible, key)
		}
	}
	if len(eligible) == 0 {
		return nil, nil, apierr.InsufficientPool(errNoEligibleSeries)
	}

	group := bySeries[eligible[sp.intn(len(eligible))]]
	left := group[sp.intn(len(group))]
	right := group[sp.intn(len(group))]
	for right.ID == left.ID {
		right = group[sp.intn(len(group))]
	}
	return left, right, nil
}

func (sp *samplerService) NextFromQueue(ctx context.Context, studyID, userID uuid.UUID) (*QueueNext, error) {
	session, err := sp.sessionRepo.GetActiveForUser(ctx, nil, studyID, userID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if session == nil {
		return nil, apierr.InvalidInput(errNoActiveSession)
	}

	task, err := sp.taskRepo.FirstUnevaluated(ctx, nil, studyID, session.ID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if task == nil {
		return &QueueNext{SessionID: session.ID, Done: true}, nil
	}
	return &QueueNext{SessionID: session.ID, Task: task}, nil
}

func (sp *samplerService) ListInstances(ctx context.Context, sessionID uuid.UUID, seriesUID string) (*SeriesInstances, error) {
	sessions, err := sp.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(sessions) == 0 {
		return nil, apierr.NotFoundf("session not found")
	}

	images, err := sp.imageRepo.FindByStudyAndSeries(ctx, nil, sessions[0].StudyID, seriesUID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}

	instances := make([]SeriesInstance, 0, len(images))
	for _, img := range images {
		if img.SOPInstanceUID == nil || *img.SOPInstanceUID == "" {
			continue
		}
		var num *string
		if img.InstanceNumber != nil {
			s := strconv.Itoa(*img.InstanceNumber)
			num = &s
		}
		instances = append(instances, SeriesInstance{
			SOPInstanceUID: *img.SOPInstanceUID,
			InstanceNumber: num,
		})
	}

	return &SeriesInstances{
		DICOMWeb:          DICOMWebInfo{BaseURL: sp.dicomWebBaseURL},
		SeriesInstanceUID: seriesUID,
		Instances:         instances,
	}, nil
}

func imageRef(img *types.ImageAsset) ImageRef {
	return ImageRef{
		ID:                img.ID,
		StudyInstanceUID:  *img.StudyInstanceUID,
		SeriesInstanceUID: *img.SeriesInstanceUID,
		SOPInstanceUID:    *img.SOPInstanceUID,
	}
}
