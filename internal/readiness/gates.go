package readiness

import (
	"fmt"
	"strings"
)

// Default gate thresholds. Callers may override per gate.
const (
	DefaultSpecialistThreshold   = 0.50
	DefaultDepartmentThreshold   = 0.60
	DefaultOrchestratorThreshold = 0.75
)

// Gate actions recommended after running the quality gates.
type GateAction string

const (
	ActionIngest  GateAction = "ingest"
	ActionModify  GateAction = "modify"
	ActionDiscard GateAction = "discard"
)

// GateResult is the outcome of one quality gate.
type GateResult struct {
	Name      string   `json:"name"`
	Threshold float64  `json:"threshold"`
	Passed    bool     `json:"passed"`
	Score     float64  `json:"score"`
	Issues    []string `json:"issues"`
}

// SpecialistOutput is a single specialist's output as seen by its gate.
type SpecialistOutput struct {
	Name         string
	Confidence   float64
	Completeness float64
	Fields       map[string]interface{}
}

// DepartmentReport is a department's self-reported evaluation outcome.
type DepartmentReport struct {
	Name            string
	Quality         float64
	Relevance       float64
	AcceptedOutputs int
	Complete        bool
	Issues          []string
}

// ValidationOutcome is the result of the external knowledge-validation step.
type ValidationOutcome struct {
	Succeeded bool
	Score     float64
}

// OrchestratorReport is the orchestrator-level summary of a full run.
type OrchestratorReport struct {
	OverallQuality   float64
	Completeness     float64
	CrossConsistency float64
	Validation       *ValidationOutcome
}

// OrchestrationResult is everything the gates judge for one run.
type OrchestrationResult struct {
	Departments  []DepartmentReport
	Orchestrator OrchestratorReport
}

// GateReport is the composite outcome of all gates for one run.
type GateReport struct {
	Gates  []GateResult `json:"gates"`
	Passed bool         `json:"passed"`
}

// SpecialistGate scores a single specialist output. The score starts at 0.7
// and is reduced for low confidence, low completeness, and sparse output.
func SpecialistGate(out SpecialistOutput, threshold float64) GateResult {
	score := 0.7
	var issues []string

	if out.Confidence < 0.6 {
		score -= 0.1
		issues = append(issues, fmt.Sprintf("low confidence (%.2f)", out.Confidence))
	}
	if out.Completeness < 0.7 {
		score -= 0.1
		issues = append(issues, fmt.Sprintf("low completeness (%.2f)", out.Completeness))
	}
	if populatedFields(out.Fields) < 2 {
		score -= 0.2
		issues = append(issues, "fewer than 2 populated output fields")
	}

	score = clamp01(score)
	name := out.Name
	if name == "" {
		name = "specialist"
	}

	return GateResult{
		Name:      "specialist:" + name,
		Threshold: threshold,
		Passed:    score >= threshold,
		Score:     score,
		Issues:    issues,
	}
}

// DepartmentGate scores a department's self-reported result. The department's
// own issues are carried through verbatim.
func DepartmentGate(report DepartmentReport, threshold float64) GateResult {
	score := report.Quality
	var issues []string

	if report.Relevance < 0.5 {
		score -= 0.1
		issues = append(issues, fmt.Sprintf("low relevance (%.2f)", report.Relevance))
	}
	if report.AcceptedOutputs == 0 && report.Complete {
		score -= 0.3
		issues = append(issues, "department reports complete but accepted no outputs")
	}
	issues = append(issues, report.Issues...)

	score = clamp01(score)

	return GateResult{
		Name:      "department:" + report.Name,
		Threshold: threshold,
		Passed:    score >= threshold,
		Score:     score,
		Issues:    issues,
	}
}

// OrchestratorGate scores the run-level summary. A missing validation
// outcome counts as a validation step that failed entirely.
func OrchestratorGate(report OrchestratorReport, threshold float64) GateResult {
	score := report.OverallQuality
	var issues []string

	if report.Completeness < 0.8 {
		score -= 0.1
		issues = append(issues, fmt.Sprintf("incomplete coverage (%.2f)", report.Completeness))
	}
	if report.CrossConsistency < 0.7 {
		score -= 0.1
		issues = append(issues, fmt.Sprintf("weak cross-department consistency (%.2f)", report.CrossConsistency))
	}
	switch {
	case report.Validation == nil || !report.Validation.Succeeded:
		score -= 0.2
		issues = append(issues, "knowledge validation failed")
	case report.Validation.Score < 0.7:
		score -= 0.1
		issues = append(issues, fmt.Sprintf("knowledge validation scored low (%.2f)", report.Validation.Score))
	}

	score = clamp01(score)

	return GateResult{
		Name:      "orchestrator",
		Threshold: threshold,
		Passed:    score >= threshold,
		Score:     score,
		Issues:    issues,
	}
}

// RunAllGates evaluates one department gate per reported department plus the
// orchestrator gate. The run passes only if every gate passes.
func RunAllGates(result OrchestrationResult) GateReport {
	gates := make([]GateResult, 0, len(result.Departments)+1)
	for _, dept := range result.Departments {
		gates = append(gates, DepartmentGate(dept, DefaultDepartmentThreshold))
	}
	gates = append(gates, OrchestratorGate(result.Orchestrator, DefaultOrchestratorThreshold))

	passed := true
	for _, g := range gates {
		if !g.Passed {
			passed = false
			break
		}
	}

	return GateReport{Gates: gates, Passed: passed}
}

// RecommendAction maps gate failures to a next action: ingest when all gates
// pass, discard when any failing gate scored critically low, otherwise
// modify. The reason concatenates the failing gates' issues.
func RecommendAction(gates []GateResult) (GateAction, string) {
	var failing []GateResult
	for _, g := range gates {
		if !g.Passed {
			failing = append(failing, g)
		}
	}

	if len(failing) == 0 {
		return ActionIngest, ""
	}

	critical := false
	var reasons []string
	for _, g := range failing {
		if g.Score < 0.5 {
			critical = true
		}
		for _, issue := range g.Issues {
			reasons = append(reasons, g.Name+": "+issue)
		}
	}

	reason := strings.Join(reasons, "; ")
	if critical {
		return ActionDiscard, reason
	}
	return ActionModify, reason
}

func populatedFields(fields map[string]interface{}) int {
	count := 0
	for _, v := range fields {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(val) != "" {
				count++
			}
		case []interface{}:
			if len(val) > 0 {
				count++
			}
		case map[string]interface{}:
			if len(val) > 0 {
				count++
			}
		default:
			count++
		}
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
