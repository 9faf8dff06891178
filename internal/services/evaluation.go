package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

type RecordedEvaluation struct {
	EvaluationID uuid.UUID `json:"evaluationId"`
	SessionID    uuid.UUID `json:"sessionId"`
	Choice       string    `json:"choice"`
}

// EvaluationService appends observer answers. An answer is immutable: a
// second submission for the same (session, task) comes back as a conflict
// that callers should treat as "already answered".
type EvaluationService interface {
	Record(ctx context.Context, sessionID, taskID uuid.UUID, choice string, responseTimeMs *int) (*RecordedEvaluation, error)
	// RecordForUser resolves the caller's active session for the task's
	// study before recording.
	RecordForUser(ctx context.Context, userID, taskID uuid.UUID, choice string, responseTimeMs *int) (*RecordedEvaluation, error)
}

type evaluationService struct {
	db             *gorm.DB
	log            *logger.Logger
	sessionRepo    repos.SessionRepo
	taskRepo       repos.PairwiseTaskRepo
	evaluationRepo repos.PairwiseEvaluationRepo
}

func NewEvaluationService(db *gorm.DB, log *logger.Logger, sessionRepo repos.SessionRepo, taskRepo repos.PairwiseTaskRepo, evaluationRepo repos.PairwiseEvaluationRepo) EvaluationService {
	return &evaluationService{
		db:             db,
		log:            log.With("service", "EvaluationService"),
		sessionRepo:    sessionRepo,
		taskRepo:       taskRepo,
		evaluationRepo: evaluationRepo,
	}
}

func (es *evaluationService) Record(ctx context.Context, sessionID, taskID uuid.UUID, choice string, responseTimeMs *int) (*RecordedEvaluation, error) {
	if !types.ValidChoice(choice) {
		return nil, apierr.InvalidInputf("unknown choice %q", choice)
	}
	if responseTimeMs != nil && *responseTimeMs < 0 {
		return nil, apierr.InvalidInputf("responseTimeMs must be >= 0")
	}

	tasks, err := es.taskRepo.GetByIDs(ctx, nil, []uuid.UUID{taskID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(tasks) == 0 {
		return nil, apierr.NotFoundf("task not found")
	}

	sessions, err := es.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(sessions) == 0 {
		return nil, apierr.NotFoundf("session not found")
	}

	return es.insert(ctx, sessionID, taskID, choice, responseTimeMs)
}

func (es *evaluationService) RecordForUser(ctx context.Context, userID, taskID uuid.UUID, choice string, responseTimeMs *int) (*RecordedEvaluation, error) {
	if !types.ValidChoice(choice) {
		return nil, apierr.InvalidInputf("unknown choice %q", choice)
	}
	if responseTimeMs != nil && *responseTimeMs < 0 {
		return nil, apierr.InvalidInputf("responseTimeMs must be >= 0")
	}

	tasks, err := es.taskRepo.GetByIDs(ctx, nil, []uuid.UUID{taskID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(tasks) == 0 {
		return nil, apierr.NotFoundf("task not found")
	}

	session, err := es.sessionRepo.GetActiveForUser(ctx, nil, tasks[0].StudyID, userID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if session == nil {
		return nil, apierr.InvalidInput(errNoActiveSession)
	}

	return es.insert(ctx, session.ID, taskID, choice, responseTimeMs)
}

// insert relies on the unique index for duplicate detection; a racing
// duplicate surfaces as conflict from the repo, never as a second row.
func (es *evaluationService) insert(ctx context.Context, sessionID, taskID uuid.UUID, choice string, responseTimeMs *int) (*RecordedEvaluation, error) {
	row := &types.PairwiseEvaluation{
		SessionID:      sessionID,
		TaskID:         taskID,
		Choice:         choice,
		ResponseTimeMs: responseTimeMs,
	}
	saved, err := es.evaluationRepo.Create(ctx, nil, row)
	if err != nil {
		return nil, apierr.From(err)
	}

	es.log.Debug("evaluation recorded", "task_id", taskID, "choice", choice)
	return &RecordedEvaluation{
		EvaluationID: saved.ID,
		SessionID:    sessionID,
		Choice:       choice,
	}, nil
}
