package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/services"
)

type ImageHandler struct {
	imageService services.ImageService
}

func NewImageHandler(imageService services.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

type createImageBody struct {
	Filename   string                 `json:"filename"`
	StorageURI string                 `json:"storageUri"`
	Modality   string                 `json:"modality"`
	DoseLevel  *string                `json:"doseLevel"`
	Category   *string                `json:"category"`
	Width      *int                   `json:"width"`
	Height     *int                   `json:"height"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// POST /api/images
func (ih *ImageHandler) Create(c *gin.Context) {
	var body createImageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	img, err := ih.imageService.Create(c.Request.Context(), services.ImageInput{
		Filename:   body.Filename,
		StorageURI: body.StorageURI,
		Modality:   body.Modality,
		DoseLevel:  body.DoseLevel,
		Category:   body.Category,
		Width:      body.Width,
		Height:     body.Height,
		Metadata:   body.Metadata,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, img)
}

// GET /api/images
func (ih *ImageHandler) List(c *gin.Context) {
	images, err := ih.imageService.List(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, images)
}

type attachImagesBody struct {
	ImageIDs []string `json:"imageIds"`
}

// POST /api/studies/:studyId/images
func (ih *ImageHandler) Attach(c *gin.Context) {
	studyID, err := uuid.Parse(c.Param("studyId"))
	if err != nil {
		RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
		return
	}

	var body attachImagesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondAPIError(c, apierr.InvalidInput(err))
		return
	}
	if len(body.ImageIDs) == 0 {
		RespondAPIError(c, apierr.InvalidInputf("imageIds required"))
		return
	}
	imageIDs := make([]uuid.UUID, 0, len(body.ImageIDs))
	for _, raw := range body.ImageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondAPIError(c, apierr.InvalidInputf("invalid image id %q", raw))
			return
		}
		imageIDs = append(imageIDs, id)
	}

	if err := ih.imageService.AttachToStudy(c.Request.Context(), studyID, imageIDs); err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"studyId": studyID, "attached": len(imageIDs)})
}

// POST /api/images/sync
func (ih *ImageHandler) Sync(c *gin.Context) {
	var studyID *uuid.UUID
	if raw := c.Query("studyId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondAPIError(c, apierr.InvalidInputf("invalid study id"))
			return
		}
		studyID = &id
	}

	result, err := ih.imageService.SyncFromArchive(c.Request.Context(), studyID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}
