package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

type StudyHandler struct {
	studyService services.StudyService
}

func NewStudyHandler(studyService services.StudyService) *StudyHandler {
	return &StudyHandler{studyService: studyService}
}

type createStudyBody struct {
	Name      string `json:"name"`
	StudyType string `json:"studyType"`
}

// POST /api/studies
func (sh *StudyHandler) Create(c *gin.Context) {
	var body createStudyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	study, err := sh.studyService.Create(c.Request.Context(), body.Name, body.StudyType)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, study)
}

// GET /api/studies
func (sh *StudyHandler) List(c *gin.Context) {
	studies, err := sh.studyService.List(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, studies)
}

// intQuery reads an integer query parameter, falling back on bad input.
func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
