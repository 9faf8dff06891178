package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/middleware"
	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

// PairwiseHandler serves the pre-generated queue to authenticated observers.
// The anonymous on-demand loop lives on PublicHandler.
type PairwiseHandler struct {
	samplerService    services.SamplerService
	evaluationService services.EvaluationService
}

func NewPairwiseHandler(samplerService services.SamplerService, evaluationService services.EvaluationService) *PairwiseHandler {
	return &PairwiseHandler{
		samplerService:    samplerService,
		evaluationService: evaluationService,
	}
}

// GET /api/studies/:studyId/pairwise/next
func (ph *PairwiseHandler) Next(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}
	studyID, err := uuid.Parse(c.Param("studyId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
		return
	}

	next, err := ph.samplerService.NextFromQueue(c.Request.Context(), studyID, userID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, next)
}

// POST /api/pairwise/answer
func (ph *PairwiseHandler) Answer(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
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

	recorded, err := ph.evaluationService.RecordForUser(c.Request.Context(), userID, taskID, body.Choice, body.ResponseTimeMs)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, recorded)
}
