package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

// ImageRepo is the image catalog surface. The pairwise engine only reads it
// (FindReadyByStudy, FindByStudyAndSeries); writes belong to the admin
// surface and the archive sync.
type ImageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, images []*types.ImageAsset) ([]*types.ImageAsset, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ImageAsset, error)
	// FindReadyByStudy returns the study's DICOM images with every viewer
	// identifier populated.
	FindReadyByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]*types.ImageAsset, error)
	// FindByStudyAndSeries returns the study's instances of one series,
	// ordered by instance_number with unnumbered instances last.
	FindByStudyAndSeries(ctx context.Context, tx *gorm.DB, studyID uuid.UUID, seriesUID string) ([]*types.ImageAsset, error)
	AttachToStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID, imageIDs []uuid.UUID) error
	// UpsertBySOPInstanceUID inserts archive listings, updating identity
	// fields on conflict so re-syncs converge.
	UpsertBySOPInstanceUID(ctx context.Context, tx *gorm.DB, images []*types.ImageAsset) (int, error)
}

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	return &imageRepo{db: db, log: baseLog.With("repo", "ImageRepo")}
}

func (ir *imageRepo) Create(ctx context.Context, tx *gorm.DB, images []*types.ImageAsset) ([]*types.ImageAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(images) == 0 {
		return []*types.ImageAsset{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (ir *imageRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ImageAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if limit <= 0 {
		limit = 200
	}

	var results []*types.ImageAsset
	if err := transaction.WithContext(ctx).
		Order("uploaded_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *imageRepo) FindReadyByStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]*types.ImageAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.ImageAsset
	if err := transaction.WithContext(ctx).
		Joins(`JOIN study_image ON study_image.image_id = image_asset.id`).
		Where(`study_image.study_id = ?
			AND image_asset.format = ?
			AND image_asset.study_instance_uid IS NOT NULL
			AND image_asset.series_instance_uid IS NOT NULL
			AND image_asset.sop_instance_uid IS NOT NULL`,
			studyID, types.ImageFormatDICOM).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *imageRepo) FindByStudyAndSeries(ctx context.Context, tx *gorm.DB, studyID uuid.UUID, seriesUID string) ([]*types.ImageAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.ImageAsset
	if err := transaction.WithContext(ctx).
		Joins(`JOIN study_image ON study_image.image_id = image_asset.id`).
		Where(`study_image.study_id = ?
			AND image_asset.format = ?
			AND image_asset.series_instance_uid = ?
			AND image_asset.sop_instance_uid IS NOT NULL`,
			studyID, types.ImageFormatDICOM, seriesUID).
		Order("image_asset.instance_number ASC NULLS LAST").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *imageRepo) AttachToStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID, imageIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(imageIDs) == 0 {
		return nil
	}

	rows := make([]*types.StudyImage, 0, len(imageIDs))
	for _, imageID := range imageIDs {
		rows = append(rows, &types.StudyImage{StudyID: studyID, ImageID: imageID})
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (ir *imageRepo) UpsertBySOPInstanceUID(ctx context.Context, tx *gorm.DB, images []*types.ImageAsset) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(images) == 0 {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sop_instance_uid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"study_instance_uid", "series_instance_uid", "instance_number", "metadata",
			}),
		}).
		Create(&images)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
