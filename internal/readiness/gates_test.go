package readiness

import (
	"strings"
	"testing"
)

func TestSpecialistGate_FullDeductions(t *testing.T) {
	got := SpecialistGate(SpecialistOutput{
		Name:         "scene-breakdown",
		Confidence:   0.5,
		Completeness: 0.6,
		Fields:       map[string]interface{}{"summary": "x"},
	}, DefaultSpecialistThreshold)

	// 0.7 - 0.1 - 0.1 - 0.2 = 0.3
	if got.Score < 0.29 || got.Score > 0.31 {
		t.Fatalf("expected score 0.3, got %v", got.Score)
	}
	if got.Passed {
		t.Fatal("expected gate to fail")
	}
	if len(got.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(got.Issues), got.Issues)
	}
}

func TestSpecialistGate_HealthyOutputPasses(t *testing.T) {
	got := SpecialistGate(SpecialistOutput{
		Confidence:   0.9,
		Completeness: 0.9,
		Fields:       map[string]interface{}{"summary": "x", "notes": "y"},
	}, DefaultSpecialistThreshold)

	if !got.Passed {
		t.Fatalf("expected pass, got score %v with issues %v", got.Score, got.Issues)
	}
	if got.Score < 0.69 || got.Score > 0.71 {
		t.Fatalf("expected score 0.7, got %v", got.Score)
	}
}

func TestSpecialistGate_EmptyStringFieldsNotPopulated(t *testing.T) {
	got := SpecialistGate(SpecialistOutput{
		Confidence:   0.9,
		Completeness: 0.9,
		Fields:       map[string]interface{}{"summary": "", "notes": "  "},
	}, DefaultSpecialistThreshold)

	if got.Score > 0.51 {
		t.Fatalf("expected sparse-output deduction, got score %v", got.Score)
	}
}

func TestDepartmentGate_CompleteWithNothingAccepted(t *testing.T) {
	got := DepartmentGate(DepartmentReport{
		Name:            "storyboard",
		Quality:         0.8,
		Relevance:       0.9,
		AcceptedOutputs: 0,
		Complete:        true,
		Issues:          []string{"missing act two coverage"},
	}, DefaultDepartmentThreshold)

	// 0.8 - 0.3 = 0.5
	if got.Score < 0.49 || got.Score > 0.51 {
		t.Fatalf("expected score 0.5, got %v", got.Score)
	}
	if got.Passed {
		t.Fatal("expected gate to fail at threshold 0.6")
	}

	found := false
	for _, issue := range got.Issues {
		if issue == "missing act two coverage" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected department's own issue carried verbatim, got %v", got.Issues)
	}
}

func TestOrchestratorGate_MissingValidationIsFullFailure(t *testing.T) {
	got := OrchestratorGate(OrchestratorReport{
		OverallQuality:   0.9,
		Completeness:     0.9,
		CrossConsistency: 0.9,
		Validation:       nil,
	}, DefaultOrchestratorThreshold)

	// 0.9 - 0.2 = 0.7
	if got.Score < 0.69 || got.Score > 0.71 {
		t.Fatalf("expected score 0.7, got %v", got.Score)
	}
	if got.Passed {
		t.Fatal("expected fail at threshold 0.75")
	}
}

func TestOrchestratorGate_LowValidationScore(t *testing.T) {
	got := OrchestratorGate(OrchestratorReport{
		OverallQuality:   0.9,
		Completeness:     0.9,
		CrossConsistency: 0.9,
		Validation:       &ValidationOutcome{Succeeded: true, Score: 0.6},
	}, DefaultOrchestratorThreshold)

	// 0.9 - 0.1 = 0.8
	if got.Score < 0.79 || got.Score > 0.81 {
		t.Fatalf("expected score 0.8, got %v", got.Score)
	}
	if !got.Passed {
		t.Fatal("expected pass at threshold 0.75")
	}
}

func TestRunAllGates_OneDepartmentGatePerReport(t *testing.T) {
	report := RunAllGates(OrchestrationResult{
		Departments: []DepartmentReport{
			{Name: "script", Quality: 0.9, Relevance: 0.9, AcceptedOutputs: 3},
			{Name: "characters", Quality: 0.9, Relevance: 0.9, AcceptedOutputs: 2},
		},
		Orchestrator: OrchestratorReport{
			OverallQuality:   0.95,
			Completeness:     0.9,
			CrossConsistency: 0.9,
			Validation:       &ValidationOutcome{Succeeded: true, Score: 0.9},
		},
	})

	if len(report.Gates) != 3 {
		t.Fatalf("expected 3 gates (2 departments + orchestrator), got %d", len(report.Gates))
	}
	if !report.Passed {
		t.Fatalf("expected overall pass, gates: %+v", report.Gates)
	}
}

func TestRunAllGates_AnyFailureFailsRun(t *testing.T) {
	report := RunAllGates(OrchestrationResult{
		Departments: []DepartmentReport{
			{Name: "script", Quality: 0.3, Relevance: 0.9, AcceptedOutputs: 1},
		},
		Orchestrator: OrchestratorReport{
			OverallQuality:   0.95,
			Completeness:     0.9,
			CrossConsistency: 0.9,
			Validation:       &ValidationOutcome{Succeeded: true, Score: 0.9},
		},
	})

	if report.Passed {
		t.Fatal("expected overall fail when one gate fails")
	}
}

func TestRecommendAction(t *testing.T) {
	passing := GateResult{Name: "department:script", Passed: true, Score: 0.9}
	weakFail := GateResult{Name: "department:settings", Passed: false, Score: 0.55, Issues: []string{"thin worldbuilding"}}
	criticalFail := GateResult{Name: "orchestrator", Passed: false, Score: 0.3, Issues: []string{"knowledge validation failed"}}

	action, reason := RecommendAction([]GateResult{passing})
	if action != ActionIngest || reason != "" {
		t.Fatalf("expected ingest with empty reason, got %q / %q", action, reason)
	}

	action, reason = RecommendAction([]GateResult{passing, weakFail})
	if action != ActionModify {
		t.Fatalf("expected modify, got %q", action)
	}
	if !strings.Contains(reason, "thin worldbuilding") {
		t.Fatalf("expected failing issue in reason, got %q", reason)
	}

	action, _ = RecommendAction([]GateResult{weakFail, criticalFail})
	if action != ActionDiscard {
		t.Fatalf("expected discard for critical failure, got %q", action)
	}
}
