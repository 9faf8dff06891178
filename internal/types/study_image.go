package types

import (
	"time"

	"github.com/google/uuid"
)

// StudyImage attaches a catalog image to a study.
type StudyImage struct {
	StudyID   uuid.UUID `gorm:"type:uuid;primaryKey;column:study_id" json:"study_id"`
	ImageID   uuid.UUID `gorm:"type:uuid;primaryKey;column:image_id" json:"image_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (StudyImage) TableName() string {
	return "study_image"
}
