package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

type InvitationHandler struct {
	invitationService services.InvitationService
}

func NewInvitationHandler(invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type mintInvitationBody struct {
	ExpiresAt *time.Time `json:"expiresAt"`
	MaxUses   *int       `json:"maxUses"`
}

// POST /api/studies/:studyId/invitations
func (ih *InvitationHandler) Mint(c *gin.Context) {
	studyID, err := uuid.Parse(c.Param("studyId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
		return
	}

	var body mintInvitationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}

	invitation, err := ih.invitationService.Mint(c.Request.Context(), studyID, body.ExpiresAt, body.MaxUses)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, invitation)
}
