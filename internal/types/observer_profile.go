package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	VisionStatusNormal         = "NORMAL"
	VisionStatusCorrected      = "CORRECTED"
	VisionStatusColorDeficient = "COLOR_DEFICIENT"
	VisionStatusOther          = "OTHER"
)

const (
	ExpertiseRadiology    = "RADIOLOGY"
	ExpertiseImageQuality = "IMAGE_QUALITY"
	ExpertiseOther        = "OTHER"
)

// ObserverProfile is the anonymous demographic/consent record created once
// per redeemed session. Immutable after creation.
type ObserverProfile struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Age               *int      `gorm:"column:age" json:"age"`
	VisionStatus      string    `gorm:"not null;default:'NORMAL';column:vision_status" json:"vision_status"`
	VisionStatusOther *string   `gorm:"column:vision_status_other" json:"vision_status_other"`
	ExpertiseType     string    `gorm:"not null;column:expertise_type" json:"expertise_type"`
	Specialty         *string   `gorm:"column:specialty" json:"specialty"`
	ExperienceYears   *int      `gorm:"column:experience_years" json:"experience_years"`
	ConsentAccepted   bool      `gorm:"not null;column:consent_accepted" json:"consent_accepted"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ObserverProfile) TableName() string {
	return "observer_profile"
}

func ValidVisionStatus(s string) bool {
	switch s {
	case VisionStatusNormal, VisionStatusCorrected, VisionStatusColorDeficient, VisionStatusOther:
		return true
	}
	return false
}

func ValidExpertiseType(s string) bool {
	switch s {
	case ExpertiseRadiology, ExpertiseImageQuality, ExpertiseOther:
		return true
	}
	return false
}
