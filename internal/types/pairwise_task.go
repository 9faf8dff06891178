package types

import (
	"time"

	"github.com/google/uuid"
)

// PairwiseTask is one presented left/right comparison. Invariant
// left_image_id <> right_image_id is also enforced by a table CHECK.
type PairwiseTask struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudyID      uuid.UUID `gorm:"type:uuid;not null;index;column:study_id" json:"study_id"`
	LeftImageID  uuid.UUID `gorm:"type:uuid;not null;column:left_image_id" json:"left_image_id"`
	RightImageID uuid.UUID `gorm:"type:uuid;not null;column:right_image_id" json:"right_image_id"`
	SamplingSeed string    `gorm:"not null;column:sampling_seed" json:"sampling_seed"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PairwiseTask) TableName() string {
	return "pairwise_task"
}
