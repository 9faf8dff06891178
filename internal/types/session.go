package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SessionInProgress = "IN_PROGRESS"
	SessionCompleted  = "COMPLETED"
)

// Session scopes one observer's participation in one study. Status moves
// IN_PROGRESS -> COMPLETED and never back.
type Session struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudyID        uuid.UUID      `gorm:"type:uuid;not null;index;column:study_id" json:"study_id"`
	ObserverID     *uuid.UUID     `gorm:"type:uuid;column:observer_id" json:"observer_id"`
	UserID         *uuid.UUID     `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	InvitationID   *uuid.UUID     `gorm:"type:uuid;column:invitation_id" json:"invitation_id"`
	Status         string         `gorm:"not null;default:'IN_PROGRESS';column:status" json:"status"`
	DisplayProfile datatypes.JSON `gorm:"column:display_profile" json:"display_profile"`
	StartedAt      time.Time      `gorm:"not null;default:now();column:started_at" json:"started_at"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at"`
}

func (Session) TableName() string {
	return "session"
}
