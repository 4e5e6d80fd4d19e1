// Package readiness holds the pure scoring logic for project readiness:
// aggregation of department ratings into a project-level score, and the
// quality gates applied to orchestrated evaluation outputs. No I/O happens
// here; callers persist or transport the results.
package readiness

import "math"

// Recommendation is the project-level readiness verdict.
type Recommendation string

const (
	Ready            Recommendation = "ready"
	NeedsImprovement Recommendation = "needs_improvement"
	NotReady         Recommendation = "not_ready"
)

// DepartmentScore is one completed department's contribution to the project
// score. Weight is optional; zero means unweighted.
type DepartmentScore struct {
	Rating float64
	Weight float64
}

// ProjectScore combines completed department ratings into a 0-100 project
// readiness score. If any score carries a positive weight the result is the
// weight-normalized weighted mean (scores without a weight default to 1);
// otherwise it is the plain arithmetic mean. Empty input yields 0.
func ProjectScore(scores []DepartmentScore) int {
	if len(scores) == 0 {
		return 0
	}

	weighted := false
	for _, s := range scores {
		if s.Weight > 0 {
			weighted = true
			break
		}
	}

	var sum, totalWeight float64
	for _, s := range scores {
		w := 1.0
		if weighted && s.Weight > 0 {
			w = s.Weight
		}
		sum += s.Rating * w
		totalWeight += w
	}

	return int(math.Round(sum / totalWeight))
}

// Consistency maps the population standard deviation of the ratings onto a
// 0-100 consistency score: identical ratings score 100, a standard deviation
// of 50 or more scores 0. Fewer than two ratings are trivially consistent.
func Consistency(ratings []float64) int {
	if len(ratings) < 2 {
		return 100
	}

	var sum float64
	for _, r := range ratings {
		sum += r
	}
	mean := sum / float64(len(ratings))

	var variance float64
	for _, r := range ratings {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(ratings))
	stdDev := math.Sqrt(variance)

	score := 100 - (stdDev/50)*100
	if score < 0 {
		score = 0
	}
	return int(math.Round(score))
}

// Completeness returns the integer percentage of departments evaluated.
func Completeness(evaluatedCount, totalDepartments int) int {
	if totalDepartments == 0 {
		return 0
	}
	return int(math.Round(float64(evaluatedCount) / float64(totalDepartments) * 100))
}

// Recommend maps a project score to a readiness recommendation.
func Recommend(score int) Recommendation {
	switch {
	case score >= 80:
		return Ready
	case score >= 60:
		return NeedsImprovement
	default:
		return NotReady
	}
}
