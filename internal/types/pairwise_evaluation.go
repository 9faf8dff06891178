package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChoiceLeftBetter  = "LEFT_BETTER"
	ChoiceRightBetter = "RIGHT_BETTER"
	ChoiceEqual       = "EQUAL"
)

// PairwiseEvaluation is an observer's answer to one task. Append-only; the
// composite unique index on (session_id, task_id) is the correctness
// boundary for duplicate submissions.
type PairwiseEvaluation struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_evaluation_session_task;column:session_id" json:"session_id"`
	TaskID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_evaluation_session_task;column:task_id" json:"task_id"`
	Choice         string    `gorm:"not null;column:choice" json:"choice"`
	ResponseTimeMs *int      `gorm:"column:response_time_ms" json:"response_time_ms"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PairwiseEvaluation) TableName() string {
	return "pairwise_evaluation"
}

func ValidChoice(c string) bool {
	switch c {
	case ChoiceLeftBetter, ChoiceRightBetter, ChoiceEqual:
		return true
	}
	return false
}
