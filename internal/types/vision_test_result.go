package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	VisionPass    = "PASS"
	VisionFail    = "FAIL"
	VisionPending = "PENDING"
)

// VisionTestResult records one screening attempt. Multiple attempts may
// exist; the current status is the most recent by tested_at. A FAIL here is
// advisory and never blocks pairwise sampling.
type VisionTestResult struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID     *uuid.UUID     `gorm:"type:uuid;index;column:session_id" json:"session_id"`
	UserID        *uuid.UUID     `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	IshiharaScore int            `gorm:"not null;column:ishihara_score" json:"ishihara_score"`
	IshiharaTotal int            `gorm:"not null;column:ishihara_total" json:"ishihara_total"`
	ContrastScore float64        `gorm:"not null;column:contrast_score" json:"contrast_score"`
	Status        string         `gorm:"not null;column:status" json:"status"`
	Details       datatypes.JSON `gorm:"column:details" json:"details"`
	TestedAt      time.Time      `gorm:"not null;default:now();column:tested_at" json:"tested_at"`
}

func (VisionTestResult) TableName() string {
	return "vision_test_result"
}

const (
	GateModeRatio      = "ratio"
	GateModeMinCorrect = "minCorrect"
	GateModeMaxErrors  = "maxErrors"
)

// GatePolicy is the configurable pass/fail policy for the vision gate.
type GatePolicy struct {
	Ishihara IshiharaRule `yaml:"ishihara" json:"ishihara"`
	Contrast ContrastRule `yaml:"contrast" json:"contrast"`
}

type IshiharaRule struct {
	Mode       string   `yaml:"mode" json:"mode"`
	MinRatio   *float64 `yaml:"minRatio" json:"minRatio"`
	MinCorrect *int     `yaml:"minCorrect" json:"minCorrect"`
	MaxErrors  *int     `yaml:"maxErrors" json:"maxErrors"`
}

type ContrastRule struct {
	MinScore *float64 `yaml:"minScore" json:"minScore"`
}

// GateSnapshot is the typed shape persisted in vision_test_result.details,
// capturing exactly which policy produced the verdict. Extra carries
// unrecognised caller-supplied detail keys.
type GateSnapshot struct {
	GateApplied GateApplied            `json:"gateApplied"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

type GateApplied struct {
	Ishihara IshiharaApplied `json:"ishihara"`
	Contrast ContrastApplied `json:"contrast"`
}

type IshiharaApplied struct {
	Mode            string   `json:"mode"`
	MinCorrect      int      `json:"minCorrect"`
	MinRatio        *float64 `json:"minRatio"`
	MaxErrors       *int     `json:"maxErrors"`
	MinCorrectFixed *int     `json:"minCorrectFixed"`
}

type ContrastApplied struct {
	MinScore float64 `json:"minScore"`
}
