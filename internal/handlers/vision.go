package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radiq/radiq-backend/internal/middleware"
	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

type VisionHandler struct {
	visionService services.VisionService
}

func NewVisionHandler(visionService services.VisionService) *VisionHandler {
	return &VisionHandler{visionService: visionService}
}

// POST /api/vision-test
func (vh *VisionHandler) Submit(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
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

	verdict, err := vh.visionService.SubmitForUser(c.Request.Context(), userID, services.VisionSubmission{
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

// GET /api/vision-test/status
func (vh *VisionHandler) Status(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}

	result, err := vh.visionService.StatusForUser(c.Request.Context(), userID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}
