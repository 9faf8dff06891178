package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

// ObserverInput is the anonymous profile captured at redemption time.
type ObserverInput struct {
	Age               *int
	VisionStatus      string
	VisionStatusOther *string
	ExpertiseType     string
	Specialty         *string
	ExperienceYears   *int
	ConsentAccepted   bool
}

type RedemptionResult struct {
	SessionID  uuid.UUID `json:"sessionId"`
	ObserverID uuid.UUID `json:"observerId"`
	StudyID    uuid.UUID `json:"studyId"`
}

type InvitationSummary struct {
	Token   string       `json:"token"`
	Study   *types.Study `json:"study"`
	Expires *time.Time   `json:"expiresAt"`
}

type InvitationService interface {
	// Redeem validates the token, creates the observer profile and session,
	// and consumes one use — all in one transaction. A failure at any step
	// leaves used_count untouched.
	Redeem(ctx context.Context, token string, observer ObserverInput) (*RedemptionResult, error)
	// Describe returns the study behind a token without consuming a use.
	Describe(ctx context.Context, token string) (*InvitationSummary, error)
	Mint(ctx context.Context, studyID uuid.UUID, expiresAt *time.Time, maxUses *int) (*types.StudyInvitation, error)
}

type invitationService struct {
	db             *gorm.DB
	log            *logger.Logger
	invitationRepo repos.InvitationRepo
	profileRepo    repos.ObserverProfileRepo
	sessionRepo    repos.SessionRepo
	studyRepo      repos.StudyRepo
	now            func() time.Time
}

func NewInvitationService(
	db *gorm.DB,
	log *logger.Logger,
	invitationRepo repos.InvitationRepo,
	profileRepo repos.ObserverProfileRepo,
	sessionRepo repos.SessionRepo,
	studyRepo repos.StudyRepo,
) InvitationService {
	return &invitationService{
		db:             db,
		log:            log.With("service", "InvitationService"),
		invitationRepo: invitationRepo,
		profileRepo:    profileRepo,
		sessionRepo:    sessionRepo,
		studyRepo:      studyRepo,
		now:            time.Now,
	}
}

func (is *invitationService) Redeem(ctx context.Context, token string, observer ObserverInput) (*RedemptionResult, error) {
	if token == "" {
		return nil, apierr.InvalidInputf("token required")
	}
	if err := validateObserver(observer); err != nil {
		return nil, err
	}

	var result *RedemptionResult
	err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := is.invitationRepo.GetByToken(ctx, tx, token)
		if err != nil {
			return apierr.FromDB(err)
		}
		if invite == nil {
			return apierr.NotFoundf("invalid token")
		}
		now := is.now()
		if invite.ExpiredAt(now) {
			return apierr.Expired(errTokenExpired)
		}
		if invite.Exhausted() {
			return apierr.ExhaustedUses(errTokenExhausted)
		}

		visionStatus := observer.VisionStatus
		if visionStatus == "" {
			visionStatus = types.VisionStatusNormal
		}
		profile := &types.ObserverProfile{
			Age:               observer.Age,
			VisionStatus:      visionStatus,
			VisionStatusOther: observer.VisionStatusOther,
			ExpertiseType:     observer.ExpertiseType,
			Specialty:         observer.Specialty,
			ExperienceYears:   observer.ExperienceYears,
			ConsentAccepted:   observer.ConsentAccepted,
		}
		if _, err := is.profileRepo.Create(ctx, tx, []*types.ObserverProfile{profile}); err != nil {
			return apierr.FromDB(err)
		}

		session := &types.Session{
			StudyID:      invite.StudyID,
			ObserverID:   &profile.ID,
			InvitationID: &invite.ID,
			Status:       types.SessionInProgress,
		}
		if _, err := is.sessionRepo.Create(ctx, tx, []*types.Session{session}); err != nil {
			return apierr.FromDB(err)
		}

		// The guarded increment is the linearization point: if a concurrent
		// redemption took the last use since the read above, this returns
		// false and the whole transaction rolls back.
		consumed, err := is.invitationRepo.ConsumeUse(ctx, tx, invite.ID)
		if err != nil {
			return apierr.FromDB(err)
		}
		if !consumed {
			return apierr.ExhaustedUses(errTokenExhausted)
		}

		result = &RedemptionResult{
			SessionID:  session.ID,
			ObserverID: profile.ID,
			StudyID:    invite.StudyID,
		}
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}

	is.log.Info("invitation redeemed", "study_id", result.StudyID)
	return result, nil
}

func (is *invitationService) Describe(ctx context.Context, token string) (*InvitationSummary, error) {
	invite, err := is.invitationRepo.GetByToken(ctx, nil, token)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if invite == nil {
		return nil, apierr.NotFoundf("invalid token")
	}
	if invite.ExpiredAt(is.now()) {
		return nil, apierr.Expired(errTokenExpired)
	}
	if invite.Exhausted() {
		return nil, apierr.ExhaustedUses(errTokenExhausted)
	}

	studies, err := is.studyRepo.GetByIDs(ctx, nil, []uuid.UUID{invite.StudyID})
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if len(studies) == 0 {
		return nil, apierr.NotFoundf("study not found")
	}
	return &InvitationSummary{Token: invite.Token, Study: studies[0], Expires: invite.ExpiresAt}, nil
}

func (is *invitationService) Mint(ctx context.Context, studyID uuid.UUID, expiresAt *time.Time, maxUses *int) (*types.StudyInvitation, error) {
	exists, err := is.studyRepo.Exists(ctx, nil, studyID)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if !exists {
		return nil, apierr.InvalidReference(errStudyMissing)
	}
	if maxUses != nil && *maxUses <= 0 {
		return nil, apierr.InvalidInputf("maxUses must be positive")
	}

	token, err := MintToken()
	if err != nil {
		return nil, apierr.Internal(err)
	}
	invite := &types.StudyInvitation{
		Token:     token,
		StudyID:   studyID,
		ExpiresAt: expiresAt,
		MaxUses:   maxUses,
	}
	if _, err := is.invitationRepo.Create(ctx, nil, []*types.StudyInvitation{invite}); err != nil {
		return nil, apierr.FromDB(err)
	}
	return invite, nil
}

// MintToken returns a 32-byte url-safe opaque token.
func MintToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func validateObserver(o ObserverInput) error {
	if !o.ConsentAccepted {
		return apierr.InvalidInputf("consent is required")
	}
	if !types.ValidExpertiseType(o.ExpertiseType) {
		return apierr.InvalidInputf("unknown expertiseType %q", o.ExpertiseType)
	}
	if o.VisionStatus != "" && !types.ValidVisionStatus(o.VisionStatus) {
		return apierr.InvalidInputf("unknown visionStatus %q", o.VisionStatus)
	}
	if o.VisionStatus == types.VisionStatusOther && (o.VisionStatusOther == nil || *o.VisionStatusOther == "") {
		return apierr.InvalidInputf("visionStatusOther required when visionStatus is OTHER")
	}
	if o.Age != nil && (*o.Age < 0 || *o.Age > 120) {
		return apierr.InvalidInputf("age out of range")
	}
	if o.ExperienceYears != nil && *o.ExperienceYears < 0 {
		return apierr.InvalidInputf("experienceYears must be >= 0")
	}
	return nil
}
