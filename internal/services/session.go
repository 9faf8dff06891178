package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

// SessionService owns the session lifecycle for the authenticated flow.
// Anonymous sessions are created inside InvitationService.Redeem so the
// token consumption and the session share one transaction.
type SessionService interface {
	// Start opens a session for (studyID, userID), or returns the one
	// already in progress: at most one active session per pair.
	Start(ctx context.Context, studyID, userID uuid.UUID, displayProfile datatypes.JSON) (*types.Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*types.Session, error)
	ActiveForUser(ctx context.Context, studyID, userID uuid.UUID) (*types.Session, error)
	// Complete marks the session COMPLETED. Completing twice is a conflict;
	// completed sessions never return to IN_PROGRESS.
	Complete(ctx context.Context, sessionID uuid.UUID) error
}

type sessionService struct {
	db          *gorm.DB
	log         *logger.Logger
	sessionRepo repos.SessionRepo
	studyRepo   repos.StudyRepo
	now         func() time.Time
}

func NewSessionService(db *gorm.DB, log *logger.Logger, sessionRepo repos.SessionRepo, studyRepo repos.StudyRepo) SessionService {
	return &sessionService{
		db:          db,
		log:         log.With("service", "SessionService"),
		sessionRepo: sessionRepo,
		studyRepo:   studyRepo,
		now:         time.Now,
	}
}

func (ss *sessionService) Start(ctx context.Context, studyID, userID uuid.UUID, displayProfile datatypes.JSON) (*types.Session, error) {
	var session *types.Session
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := ss.studyRepo.Exists(ctx, tx, studyID)
		if err != nil {
			return apierr.FromDB(err)
		}
		if !exists {
			return apierr.InvalidReference(errStudyMissing)
		}

		active, err := ss.sessionRepo.GetActiveForUser(ctx, tx, studyID, userID)
		if err != nil {
			return apierr.FromDB(err)
		}
		if active != nil {
			session = active
			return nil
		}

		session = &types.Session{
			StudyID:        studyID,
			UserID:         &userID,
			Status:         types.SessionInProgress,
			DisplayProfile: displayProfile,
		}
		if _, err := ss.sessionRepo.Create(ctx, tx, []*types.Session{session}); err != nil {
			return apierr.FromDB(err)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}
	return session, nil
}

func (ss *sessionService) Get(ctx context.Context, sessionID uuid.UUID) (*types.Session, error) {
	sessions, err := ss.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(sessions) == 0 {
		return nil, apierr.NotFoundf("session not found")
	}
	return sessions[0], nil
}

func (ss *sessionService) ActiveForUser(ctx context.Context, studyID, userID uuid.UUID) (*types.Session, error) {
	active, err := ss.sessionRepo.GetActiveForUser(ctx, nil, studyID, userID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	return active, nil
}

func (ss *sessionService) Complete(ctx context.Context, sessionID uuid.UUID) error {
	session, err := ss.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	done, err := ss.sessionRepo.Complete(ctx, nil, session.ID, ss.now())
	if err != nil {
		return apierr.FromDB(err)
	}
	if !done {
		return apierr.Conflict(errSessionCompleted)
	}
	ss.log.Info("session completed", "session_id", sessionID)
	return nil
}
