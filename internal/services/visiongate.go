package services

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/types"
)

const (
	defaultIshiharaRatio   = 0.85
	defaultContrastMinimum = 0.5
)

// DefaultGatePolicy mirrors the shipped fallback policy: 85% Ishihara ratio
// and a 0.5 contrast floor.
func DefaultGatePolicy() types.GatePolicy {
	ratio := defaultIshiharaRatio
	minScore := defaultContrastMinimum
	return types.GatePolicy{
		Ishihara: types.IshiharaRule{Mode: types.GateModeRatio, MinRatio: &ratio},
		Contrast: types.ContrastRule{MinScore: &minScore},
	}
}

// LoadGatePolicy reads the policy file, falling back to the default policy
// when the file is absent or malformed. A missing policy must never stop
// the service from coming up.
func LoadGatePolicy(path string) types.GatePolicy {
	if path == "" {
		return DefaultGatePolicy()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultGatePolicy()
	}
	var policy types.GatePolicy
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return DefaultGatePolicy()
	}
	return policy
}

// minIshiharaCorrect computes the minimum correct-answer threshold for the
// configured mode. Invalid or unrecognised configuration falls back to the
// 0.85 ratio rather than rejecting the submission.
func minIshiharaCorrect(total int, rule types.IshiharaRule) int {
	fallback := int(math.Ceil(float64(total) * defaultIshiharaRatio))

	switch rule.Mode {
	case types.GateModeRatio:
		if rule.MinRatio == nil || *rule.MinRatio <= 0 || *rule.MinRatio > 1 || math.IsNaN(*rule.MinRatio) {
			return fallback
		}
		return int(math.Ceil(float64(total) * *rule.MinRatio))
	case types.GateModeMinCorrect:
		if rule.MinCorrect == nil || *rule.MinCorrect < 0 {
			return fallback
		}
		return *rule.MinCorrect
	case types.GateModeMaxErrors:
		if rule.MaxErrors == nil || *rule.MaxErrors < 0 {
			return fallback
		}
		if threshold := total - *rule.MaxErrors; threshold > 0 {
			return threshold
		}
		return 0
	default:
		return fallback
	}
}

// EvaluateGate is the pure vision-screening verdict: PASS iff both the
// Ishihara and contrast sub-checks pass. The returned snapshot records the
// applied thresholds so stored results stay interpretable after policy
// changes.
func EvaluateGate(ishiharaScore, ishiharaTotal int, contrastScore float64, policy types.GatePolicy) (string, types.GateSnapshot, error) {
	if ishiharaTotal <= 0 {
		return "", types.GateSnapshot{}, apierr.InvalidInputf("ishiharaTotal must be > 0")
	}
	if ishiharaScore < 0 || ishiharaScore > ishiharaTotal {
		return "", types.GateSnapshot{}, apierr.InvalidInputf("ishiharaScore must be between 0 and ishiharaTotal")
	}
	if math.IsNaN(contrastScore) || math.IsInf(contrastScore, 0) || contrastScore < 0 {
		return "", types.GateSnapshot{}, apierr.InvalidInputf("contrastScore must be >= 0")
	}

	minCorrect := minIshiharaCorrect(ishiharaTotal, policy.Ishihara)

	minContrast := defaultContrastMinimum
	if policy.Contrast.MinScore != nil && !math.IsNaN(*policy.Contrast.MinScore) {
		minContrast = *policy.Contrast.MinScore
	}

	ishiharaPass := ishiharaScore >= minCorrect
	contrastPass := contrastScore >= minContrast

	status := types.VisionFail
	if ishiharaPass && contrastPass {
		status = types.VisionPass
	}

	mode := policy.Ishihara.Mode
	if mode == "" {
		mode = types.GateModeRatio
	}
	snapshot := types.GateSnapshot{
		GateApplied: types.GateApplied{
			Ishihara: types.IshiharaApplied{
				Mode:            mode,
				MinCorrect:      minCorrect,
				MinRatio:        policy.Ishihara.MinRatio,
				MaxErrors:       policy.Ishihara.MaxErrors,
				MinCorrectFixed: policy.Ishihara.MinCorrect,
			},
			Contrast: types.ContrastApplied{MinScore: minContrast},
		},
	}
	return status, snapshot, nil
}
