package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const ImageFormatDICOM = "DICOM"

// ImageAsset is a row in the image catalog. The pairwise engine reads it,
// never mutates it; writes come from the admin surface and the archive sync.
type ImageAsset struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Filename          string         `gorm:"not null;column:filename" json:"filename"`
	StorageURI        string         `gorm:"not null;column:storage_uri" json:"storage_uri"`
	Modality          string         `gorm:"not null;default:'CT';column:modality" json:"modality"`
	DoseLevel         *string        `gorm:"column:dose_level" json:"dose_level"`
	Category          *string        `gorm:"column:category" json:"category"`
	Width             *int           `gorm:"column:width" json:"width"`
	Height            *int           `gorm:"column:height" json:"height"`
	Format            string         `gorm:"not null;default:'DICOM';column:format" json:"format"`
	StudyInstanceUID  *string        `gorm:"column:study_instance_uid" json:"study_instance_uid"`
	SeriesInstanceUID *string        `gorm:"index;column:series_instance_uid" json:"series_instance_uid"`
	SOPInstanceUID    *string        `gorm:"uniqueIndex;column:sop_instance_uid" json:"sop_instance_uid"`
	InstanceNumber    *int           `gorm:"column:instance_number" json:"instance_number"`
	Metadata          datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	UploadedAt        time.Time      `gorm:"not null;default:now();column:uploaded_at" json:"uploaded_at"`
}

func (ImageAsset) TableName() string {
	return "image_asset"
}

// Ready reports whether the asset carries every identifier the viewer needs.
func (a *ImageAsset) Ready() bool {
	return a.Format == ImageFormatDICOM &&
		a.StudyInstanceUID != nil && *a.StudyInstanceUID != "" &&
		a.SeriesInstanceUID != nil && *a.SeriesInstanceUID != "" &&
		a.SOPInstanceUID != nil && *a.SOPInstanceUID != ""
}
