package services

import (
	"testing"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/types"
)

func ratioPolicy(ratio float64) types.GatePolicy {
	minScore := 0.5
	return types.GatePolicy{
		Ishihara: types.IshiharaRule{Mode: types.GateModeRatio, MinRatio: &ratio},
		Contrast: types.ContrastRule{MinScore: &minScore},
	}
}

func TestEvaluateGateRatioBoundary(t *testing.T) {
	// 24 plates at 0.85 -> ceil(20.4) = 21 correct to pass.
	policy := ratioPolicy(0.85)

	status, snapshot, err := EvaluateGate(21, 24, 0.8, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionPass {
		t.Fatalf("status: want=%q got=%q", types.VisionPass, status)
	}
	if snapshot.GateApplied.Ishihara.MinCorrect != 21 {
		t.Fatalf("minCorrect: want=21 got=%d", snapshot.GateApplied.Ishihara.MinCorrect)
	}

	status, _, err = EvaluateGate(20, 24, 0.8, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionFail {
		t.Fatalf("status: want=%q got=%q", types.VisionFail, status)
	}
}

func TestEvaluateGateMinCorrectMode(t *testing.T) {
	minCorrect := 10
	policy := types.GatePolicy{
		Ishihara: types.IshiharaRule{Mode: types.GateModeMinCorrect, MinCorrect: &minCorrect},
	}

	status, snapshot, err := EvaluateGate(10, 24, 0.9, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionPass {
		t.Fatalf("status: want=%q got=%q", types.VisionPass, status)
	}
	if snapshot.GateApplied.Ishihara.MinCorrect != 10 {
		t.Fatalf("minCorrect: want=10 got=%d", snapshot.GateApplied.Ishihara.MinCorrect)
	}

	status, _, err = EvaluateGate(9, 24, 0.9, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionFail {
		t.Fatalf("status: want=%q got=%q", types.VisionFail, status)
	}
}

func TestEvaluateGateMaxErrorsMode(t *testing.T) {
	maxErrors := 3
	policy := types.GatePolicy{
		Ishihara: types.IshiharaRule{Mode: types.GateModeMaxErrors, MaxErrors: &maxErrors},
	}

	// 24 plates, 3 errors allowed: 21 correct passes, 20 fails.
	status, _, err := EvaluateGate(21, 24, 0.9, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionPass {
		t.Fatalf("status: want=%q got=%q", types.VisionPass, status)
	}

	status, _, err = EvaluateGate(20, 24, 0.9, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionFail {
		t.Fatalf("status: want=%q got=%q", types.VisionFail, status)
	}
}

func TestEvaluateGateContrastFloor(t *testing.T) {
	policy := ratioPolicy(0.5)

	status, snapshot, err := EvaluateGate(24, 24, 0.49, policy)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if status != types.VisionFail {
		t.Fatalf("status: want=%q got=%q", types.VisionFail, status)
	}
	if snapshot.GateApplied.Contrast.MinScore != 0.5 {
		t.Fatalf("contrast minScore: want=0.5 got=%v", snapshot.GateApplied.Contrast.MinScore)
	}
}

func TestEvaluateGateFallsBackOnBadConfig(t *testing.T) {
	// Unknown mode and out-of-range ratio both fall back to the 0.85 ratio.
	badRatio := 1.5
	for _, policy := range []types.GatePolicy{
		{Ishihara: types.IshiharaRule{Mode: "percentile"}},
		{Ishihara: types.IshiharaRule{Mode: types.GateModeRatio, MinRatio: &badRatio}},
		{},
	} {
		status, snapshot, err := EvaluateGate(21, 24, 0.9, policy)
		if err != nil {
			t.Fatalf("EvaluateGate: %v", err)
		}
		if snapshot.GateApplied.Ishihara.MinCorrect != 21 {
			t.Fatalf("fallback minCorrect: want=21 got=%d", snapshot.GateApplied.Ishihara.MinCorrect)
		}
		if status != types.VisionPass {
			t.Fatalf("status: want=%q got=%q", types.VisionPass, status)
		}
	}
}

func TestEvaluateGateRejectsInvalidSubmission(t *testing.T) {
	policy := DefaultGatePolicy()

	cases := []struct {
		name     string
		score    int
		total    int
		contrast float64
	}{
		{"zero total", 0, 0, 0.5},
		{"negative score", -1, 24, 0.5},
		{"score above total", 25, 24, 0.5},
		{"negative contrast", 20, 24, -0.1},
	}
	for _, tc := range cases {
		_, _, err := EvaluateGate(tc.score, tc.total, tc.contrast, policy)
		if !apierr.IsCode(err, apierr.CodeInvalidInput) {
			t.Fatalf("%s: want invalid_input, got %v", tc.name, err)
		}
	}
}

func TestLoadGatePolicyMissingFileFallsBack(t *testing.T) {
	policy := LoadGatePolicy("does/not/exist.yaml")
	if policy.Ishihara.Mode != types.GateModeRatio {
		t.Fatalf("mode: want=%q got=%q", types.GateModeRatio, policy.Ishihara.Mode)
	}
	if policy.Ishihara.MinRatio == nil || *policy.Ishihara.MinRatio != 0.85 {
		t.Fatalf("minRatio: want=0.85 got=%v", policy.Ishihara.MinRatio)
	}
}
