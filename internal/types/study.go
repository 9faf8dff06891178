package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	StudyStatusDraft    = "DRAFT"
	StudyStatusActive   = "ACTIVE"
	StudyStatusArchived = "ARCHIVED"
)

const (
	StudyTypePairwise = "PAIRWISE"
	StudyTypeRating   = "RATING"
)

type Study struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	StudyType string    `gorm:"not null;default:'PAIRWISE';column:study_type" json:"study_type"`
	Status    string    `gorm:"not null;default:'DRAFT';column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Study) TableName() string {
	return "study"
}
