package types

import (
	"time"

	"github.com/google/uuid"
)

// StudyInvitation is a public capability token for anonymous participation.
// used_count only moves forward, and only inside the redemption transaction.
type StudyInvitation struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Token     string     `gorm:"uniqueIndex;not null;column:token" json:"token"`
	StudyID   uuid.UUID  `gorm:"type:uuid;not null;index;column:study_id" json:"study_id"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at"`
	MaxUses   *int       `gorm:"column:max_uses" json:"max_uses"`
	UsedCount int        `gorm:"not null;default:0;column:used_count" json:"used_count"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (StudyInvitation) TableName() string {
	return "study_invitation"
}

// Exhausted reports whether the invitation has no uses remaining. The
// authoritative check happens as a conditional UPDATE at redemption time;
// this is only for read paths.
func (i *StudyInvitation) Exhausted() bool {
	return i.MaxUses != nil && i.UsedCount >= *i.MaxUses
}

func (i *StudyInvitation) ExpiredAt(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}
