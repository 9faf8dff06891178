package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

// PublicHandler is the anonymous observer surface: token redemption,
// vision screening, and the pairwise loop.
type PublicHandler struct {
	invitationService services.InvitationService
	visionService     services.VisionService
	samplerService    services.SamplerService
	evaluationService services.EvaluationService
}

func NewPublicHandler(
	invitationService services.InvitationService,
	visionService services.VisionService,
	samplerService services.SamplerService,
	evaluationService services.EvaluationService,
) *PublicHandler {
	return &PublicHandler{
		invitationService: invitationService,
		visionService:     visionService,
		samplerService:    samplerService,
		evaluationService: evaluationService,
	}
}

// GET /public/study/:token
func (ph *PublicHandler) DescribeInvitation(c *gin.Context) {
	summary, err := ph.invitationService.Describe(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, summary)
}

type observerBody struct {
	Age               *int    `json:"age"`
	VisionStatus      string  `json:"visionStatus"`
	VisionStatusOther *string `json:"visionStatusOther"`
	ExpertiseType     string  `json:"expertiseType"`
	Specialty         *string `json:"specialty"`
	ExperienceYears   *int    `json:"experienceYears"`
	ConsentAccepted   bool    `json:"consentAccepted"`
}

type startSessionBody struct {
	Token    string        `json:"token"`
	Observer *observerBody `json:"observer"`
}

// POST /public/session/start
func (ph *PublicHandler) StartSession(c *gin.Context) {
	var body startSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	if body.Token == "" || body.Observer == nil {
		RespondAPIError(c, apierr.InvalidInputf("token and observer required"))
		return
	}

	result, err := ph.invitationService.Redeem(c.Request.Context(), body.Token, services.ObserverInput{
		Age:               body.Observer.Age,
		VisionStatus:      body.Observer.VisionStatus,
		VisionStatusOther: body.Observer.VisionStatusOther,
		ExpertiseType:     body.Observer.ExpertiseType,
		Specialty:         body.Observer.Specialty,
		ExperienceYears:   body.Observer.ExperienceYears,
		ConsentAccepted:   body.Observer.ConsentAccepted,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, result)
}

type visionBody struct {
	IshiharaScore *int                   `json:"ishiharaScore"`
	IshiharaTotal *int                   `json:"ishiharaTotal"`
	ContrastScore *float64               `json:"contrastScore"`
	Details       map[string]interface{} `json:"details"`
}

// POST /public/session/:sessionId/vision
//
// A FAIL verdict is recorded and returned but never stops the session from
// continuing to /pairwise/next.
func (ph *PublicHandler) SubmitVision(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid session id"))
		return
	}

	var body visionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	if body.IshiharaScore == nil || body.IshiharaTotal == nil || body.ContrastScore == nil {
		RespondAPIError(c, apierr.InvalidInputf("missing vision fields"))
		return
	}

	verdict, err := ph.visionService.SubmitForSession(c.Request.Context(), sessionID, services.VisionSubmission{
		IshiharaScore: *body.IshiharaScore,
		IshiharaTotal: *body.IshiharaTotal,
		ContrastScore: *body.ContrastScore,
		Extra:         body.Details,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, verdict)
}

// GET /public/session/:sessionId/pairwise/next
func (ph *PublicHandler) NextPairwise(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid session id"))
		return
	}

	task, err := ph.samplerService.NextForSession(c.Request.Context(), sessionID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, task)
}

type answerBody struct {
	TaskID         string `json:"taskId"`
	Choice         string `json:"choice"`
	ResponseTimeMs *int   `json:"responseTimeMs"`
}

// POST /public/session/:sessionId/pairwise/answer
func (ph *PublicHandler) AnswerPairwise(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid session id"))
		return
	}

	var body answerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	taskID, err := uuid.Parse(body.TaskID)
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid task id"))
		return
	}

	recorded, err := ph.evaluationService.Record(c.Request.Context(), sessionID, taskID, body.Choice, body.ResponseTimeMs)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, recorded)
}

// GET /public/session/:sessionId/series/:seriesUID/instances
func (ph *PublicHandler) ListSeriesInstances(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid session id"))
		return
	}

	instances, err := ph.samplerService.ListInstances(c.Request.Context(), sessionID, c.Param("seriesUID"))
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, instances)
}
