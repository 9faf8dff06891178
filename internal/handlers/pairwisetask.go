package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

type PairwiseTaskHandler struct {
	taskGenService services.TaskGenService
}

func NewPairwiseTaskHandler(taskGenService services.TaskGenService) *PairwiseTaskHandler {
	return &PairwiseTaskHandler{taskGenService: taskGenService}
}

type generateTasksBody struct {
	Strategy    string `json:"strategy"`
	LimitImages int    `json:"limitImages"`
	MaxTasks    int    `json:"maxTasks"`
}

// POST /api/studies/:studyId/pairwise/generate
func (th *PairwiseTaskHandler) Generate(c *gin.Context) {
	studyID, err := uuid.Parse(c.Param("studyId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
		return
	}

	var body generateTasksBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}

	result, err := th.taskGenService.Regenerate(c.Request.Context(), services.GenerateRequest{
		StudyID:     studyID,
		Strategy:    body.Strategy,
		LimitImages: body.LimitImages,
		MaxTasks:    body.MaxTasks,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, result)
}

// GET /api/studies/:studyId/pairwise/tasks
func (th *PairwiseTaskHandler) List(c *gin.Context) {
	studyID, err := uuid.Parse(c.Param("studyId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
		return
	}
	tasks, err := th.taskGenService.List(c.Request.Context(), studyID, intQuery(c, "limit", 200))
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, tasks)
}
