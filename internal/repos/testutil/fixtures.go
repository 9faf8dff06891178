package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/types"
)

func SeedStudy(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Study {
	tb.Helper()
	s := &types.Study{
		ID:        uuid.New(),
		Name:      name,
		StudyType: types.StudyTypePairwise,
		Status:    types.StudyStatusActive,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed study: %v", err)
	}
	return s
}

func SeedInvitation(tb testing.TB, ctx context.Context, tx *gorm.DB, studyID uuid.UUID, maxUses *int) *types.StudyInvitation {
	tb.Helper()
	inv := &types.StudyInvitation{
		ID:      uuid.New(),
		Token:   "tok-" + uuid.NewString(),
		StudyID: studyID,
		MaxUses: maxUses,
	}
	if err := tx.WithContext(ctx).Create(inv).Error; err != nil {
		tb.Fatalf("seed invitation: %v", err)
	}
	return inv
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, studyID uuid.UUID) *types.Session {
	tb.Helper()
	sess := &types.Session{
		ID:      uuid.New(),
		StudyID: studyID,
		Status:  types.SessionInProgress,
	}
	if err := tx.WithContext(ctx).Create(sess).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return sess
}

// SeedDICOMImage creates a viewer-ready DICOM image attached to the study.
func SeedDICOMImage(tb testing.TB, ctx context.Context, tx *gorm.DB, studyID uuid.UUID, seriesUID string, instanceNumber int) *types.ImageAsset {
	tb.Helper()
	studyUID := "1.2.840." + seriesUID
	sopUID := fmt.Sprintf("%s.%d.%s", seriesUID, instanceNumber, uuid.NewString())
	img := &types.ImageAsset{
		ID:                uuid.New(),
		Filename:          fmt.Sprintf("img-%d.dcm", instanceNumber),
		StorageURI:        "orthanc://" + sopUID,
		Format:            types.ImageFormatDICOM,
		StudyInstanceUID:  &studyUID,
		SeriesInstanceUID: &seriesUID,
		SOPInstanceUID:    &sopUID,
		InstanceNumber:    &instanceNumber,
	}
	if err := tx.WithContext(ctx).Create(img).Error; err != nil {
		tb.Fatalf("seed image: %v", err)
	}
	if err := tx.WithContext(ctx).Create(&types.StudyImage{StudyID: studyID, ImageID: img.ID}).Error; err != nil {
		tb.Fatalf("attach image: %v", err)
	}
	return img
}

func SeedTask(tb testing.TB, ctx context.Context, tx *gorm.DB, studyID, leftID, rightID uuid.UUID) *types.PairwiseTask {
	tb.Helper()
	task := &types.PairwiseTask{
		ID:           uuid.New(),
		StudyID:      studyID,
		LeftImageID:  leftID,
		RightImageID: rightID,
		SamplingSeed: "seed",
	}
	if err := tx.WithContext(ctx).Create(task).Error; err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return task
}
