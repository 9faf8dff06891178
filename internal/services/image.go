package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/clients/orthanc"
	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/types"
)

type ImageInput struct {
	Filename   string
	StorageURI string
	Modality   string
	DoseLevel  *string
	Category   *string
	Width      *int
	Height     *int
	Metadata   map[string]interface{}
}

type SyncResult struct {
	StudiesSeen   int `json:"studiesSeen"`
	SeriesSeen    int `json:"seriesSeen"`
	InstancesSeen int `json:"instancesSeen"`
	Upserted      int `json:"upserted"`
}

// ImageService is the thin admin surface over the catalog plus the archive
// sync. The pairwise engine itself only reads the catalog through ImageRepo.
type ImageService interface {
	Create(ctx context.Context, input ImageInput) (*types.ImageAsset, error)
	List(ctx context.Context, limit int) ([]*types.ImageAsset, error)
	AttachToStudy(ctx context.Context, studyID uuid.UUID, imageIDs []uuid.UUID) error
	// SyncFromArchive walks the archive's QIDO listings and upserts catalog
	// rows so every known instance becomes sampler-ready.
	SyncFromArchive(ctx context.Context, studyID *uuid.UUID) (*SyncResult, error)
}

type imageService struct {
	db        *gorm.DB
	log       *logger.Logger
	imageRepo repos.ImageRepo
	studyRepo repos.StudyRepo
	archive   *orthanc.Client
}

func NewImageService(db *gorm.DB, log *logger.Logger, imageRepo repos.ImageRepo, studyRepo repos.StudyRepo, archive *orthanc.Client) ImageService {
	return &imageService{
		db:        db,
		log:       log.With("service", "ImageService"),
		imageRepo: imageRepo,
		studyRepo: studyRepo,
		archive:   archive,
	}
}

func (im *imageService) Create(ctx context.Context, input ImageInput) (*types.ImageAsset, error) {
	if input.Filename == "" || input.StorageURI == "" {
		return nil, apierr.InvalidInputf("filename and storageUri required")
	}
	modality := input.Modality
	if modality == "" {
		modality = "CT"
	}

	var metadata datatypes.JSON
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apierr.InvalidInputf("metadata not serializable: %v", err)
		}
		metadata = raw
	}

	img := &types.ImageAsset{
		Filename:   input.Filename,
		StorageURI: input.StorageURI,
		Modality:   modality,
		DoseLevel:  input.DoseLevel,
		Category:   input.Category,
		Width:      input.Width,
		Height:     input.Height,
		Metadata:   metadata,
	}
	if _, err := im.imageRepo.Create(ctx, nil, []*types.ImageAsset{img}); err != nil {
		return nil, apierr.FromDB(err)
	}
	return img, nil
}

func (im *imageService) List(ctx context.Context, limit int) ([]*types.ImageAsset, error) {
	images, err := im.imageRepo.ListRecent(ctx, nil, limit)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	return images, nil
}

func (im *imageService) AttachToStudy(ctx context.Context, studyID uuid.UUID, imageIDs []uuid.UUID) error {
	exists, err := im.studyRepo.Exists(ctx, nil, studyID)
	if err != nil {
		return apierr.FromDB(err)
	}
	if !exists {
		return apierr.InvalidReference(errStudyMissing)
	}
	if err := im.imageRepo.AttachToStudy(ctx, nil, studyID, imageIDs); err != nil {
		return apierr.FromDB(err)
	}
	return nil
}

func (im *imageService) SyncFromArchive(ctx context.Context, studyID *uuid.UUID) (*SyncResult, error) {
	if im.archive == nil {
		return nil, apierr.Internal(fmt.Errorf("archive client not configured"))
	}

	studyUIDs, err := im.archive.ListStudies(ctx)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	result := &SyncResult{StudiesSeen: len(studyUIDs)}
	var upsertIDs []uuid.UUID

	for _, studyUID := range studyUIDs {
		series, err := im.archive.ListSeries(ctx, studyUID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		result.SeriesSeen += len(series)

		for _, ref := range series {
			instances, err := im.archive.ListInstances(ctx, studyUID, ref.SeriesInstanceUID)
			if err != nil {
				return nil, apierr.Internal(err)
			}
			result.InstancesSeen += len(instances)

			rows := make([]*types.ImageAsset, 0, len(instances))
			for _, inst := range instances {
				if inst.SOPInstanceUID == "" {
					continue
				}
				studyInstanceUID := inst.StudyInstanceUID
				seriesInstanceUID := inst.SeriesInstanceUID
				sopInstanceUID := inst.SOPInstanceUID
				var metadata datatypes.JSON
				if raw, err := json.Marshal(inst.Raw); err == nil {
					metadata = raw
				}
				rows = append(rows, &types.ImageAsset{
					Filename:          sopInstanceUID + ".dcm",
					StorageURI:        fmt.Sprintf("dicomweb:%s/series/%s/instances/%s", studyInstanceUID, seriesInstanceUID, sopInstanceUID),
					Format:            types.ImageFormatDICOM,
					StudyInstanceUID:  &studyInstanceUID,
					SeriesInstanceUID: &seriesInstanceUID,
					SOPInstanceUID:    &sopInstanceUID,
					InstanceNumber:    inst.InstanceNumber,
					Metadata:          metadata,
				})
			}
			n, err := im.imageRepo.UpsertBySOPInstanceUID(ctx, nil, rows)
			if err != nil {
				return nil, apierr.FromDB(err)
			}
			result.Upserted += n
			for _, row := range rows {
				upsertIDs = append(upsertIDs, row.ID)
			}
		}
	}

	if studyID != nil && len(upsertIDs) > 0 {
		if err := im.AttachToStudy(ctx, *studyID, upsertIDs); err != nil {
			return nil, err
		}
	}

	im.log.Info("archive sync finished",
		"studies", result.StudiesSeen, "series", result.SeriesSeen,
		"instances", result.InstancesSeen, "upserted", result.Upserted)
	return result, nil
}
