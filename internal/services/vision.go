package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

type VisionSubmission struct {
	IshiharaScore int
	IshiharaTotal int
	ContrastScore float64
	Extra         map[string]interface{}
}

type VisionVerdict struct {
	ResultID uuid.UUID `json:"visionTestId"`
	Status   string    `json:"status"`
}

// VisionService records screening attempts. Verdicts are advisory: nothing
// downstream consults them before sampling, and a storage failure here must
// not be promoted into a blocker by callers.
type VisionService interface {
	SubmitForSession(ctx context.Context, sessionID uuid.UUID, sub VisionSubmission) (*VisionVerdict, error)
	SubmitForUser(ctx context.Context, userID uuid.UUID, sub VisionSubmission) (*VisionVerdict, error)
	StatusForUser(ctx context.Context, userID uuid.UUID) (*types.VisionTestResult, error)
}

type visionService struct {
	db          *gorm.DB
	log         *logger.Logger
	policy      types.GatePolicy
	sessionRepo repos.SessionRepo
	resultRepo  repos.VisionTestResultRepo
}

func NewVisionService(db *gorm.DB, log *logger.Logger, policy types.GatePolicy, sessionRepo repos.SessionRepo, resultRepo repos.VisionTestResultRepo) VisionService {
	return &visionService{
		db:          db,
		log:         log.With("service", "VisionService"),
		policy:      policy,
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
	}
}

func (vs *visionService) SubmitForSession(ctx context.Context, sessionID uuid.UUID, sub VisionSubmission) (*VisionVerdict, error) {
	sessions, err := vs.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(sessions) == 0 {
		return nil, apierr.NotFoundf("session not found")
	}
	return vs.submit(ctx, &sessionID, nil, sub)
}

func (vs *visionService) SubmitForUser(ctx context.Context, userID uuid.UUID, sub VisionSubmission) (*VisionVerdict, error) {
	return vs.submit(ctx, nil, &userID, sub)
}

func (vs *visionService) submit(ctx context.Context, sessionID, userID *uuid.UUID, sub VisionSubmission) (*VisionVerdict, error) {
	status, snapshot, err := EvaluateGate(sub.IshiharaScore, sub.IshiharaTotal, sub.ContrastScore, vs.policy)
	if err != nil {
		return nil, err
	}
	snapshot.Extra = sub.Extra

	details, err := json.Marshal(snapshot)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	row := &types.VisionTestResult{
		SessionID:     sessionID,
		UserID:        userID,
		IshiharaScore: sub.IshiharaScore,
		IshiharaTotal: sub.IshiharaTotal,
		ContrastScore: sub.ContrastScore,
		Status:        status,
		Details:       details,
	}
	saved, err := vs.resultRepo.Create(ctx, nil, []*types.VisionTestResult{row})
	if err != nil {
		return nil, apierr.FromDB(err)
	}

	vs.log.Debug("vision result recorded", "status", status)
	return &VisionVerdict{ResultID: saved[0].ID, Status: status}, nil
}

// StatusForUser returns the most recent attempt, or a PENDING placeholder
// when the user has never been screened.
func (vs *visionService) StatusForUser(ctx context.Context, userID uuid.UUID) (*types.VisionTestResult, error) {
	latest, err := vs.resultRepo.LatestForUser(ctx, nil, userID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if latest == nil {
		return &types.VisionTestResult{UserID: &userID, Status: types.VisionPending}, nil
	}
	return latest, nil
}
