package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/radiq/radiq-backend/internal/middleware"
	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

type startAuthedSessionBody struct {
	StudyID        string                 `json:"studyId"`
	DisplayProfile map[string]interface{} `json:"displayProfile"`
}

// POST /api/sessions
func (sh *SessionHandler) Start(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}

	var body startAuthedSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	studyID, err := uuid.Parse(body.StudyID)
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
		return
	}

	var displayProfile datatypes.JSON
	if body.DisplayProfile != nil {
		raw, err := json.Marshal(body.DisplayProfile)
		if err != nil {
			RespondAPIError(c, apierr.InvalidInputf("displayProfile not serializable"))
			return
		}
		displayProfile = raw
	}

	session, err := sh.sessionService.Start(c.Request.Context(), studyID, userID, displayProfile)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, session)
}

// GET /api/sessions/:sessionId
func (sh *SessionHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid session id"))
		return
	}
	session, err := sh.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, session)
}

// POST /api/sessions/:sessionId/complete
func (sh *SessionHandler) Complete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid session id"))
		return
	}
	if err := sh.sessionService.Complete(c.Request.Context(), sessionID); err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessionId": sessionID, "status": "COMPLETED"})
}
