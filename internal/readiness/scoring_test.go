package readiness

import "testing"

func TestProjectScore_UnweightedMean(t *testing.T) {
	got := ProjectScore([]DepartmentScore{{Rating: 80}, {Rating: 90}})
	if got != 85 {
		t.Fatalf("expected 85, got %d", got)
	}
}

func TestProjectScore_WeightedMean(t *testing.T) {
	got := ProjectScore([]DepartmentScore{
		{Rating: 80, Weight: 1},
		{Rating: 90, Weight: 3},
	})
	if got != 88 {
		t.Fatalf("expected 88, got %d", got)
	}
}

func TestProjectScore_Empty(t *testing.T) {
	if got := ProjectScore(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
}

func TestProjectScore_MixedWeightsDefaultToOne(t *testing.T) {
	// One weighted entry switches the whole calculation to weighted mode;
	// unweighted entries count with weight 1.
	got := ProjectScore([]DepartmentScore{
		{Rating: 80},
		{Rating: 90, Weight: 3},
	})
	if got != 88 {
		t.Fatalf("expected 88, got %d", got)
	}
}

func TestConsistency_IdenticalRatings(t *testing.T) {
	if got := Consistency([]float64{80, 80, 80}); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestConsistency_MaxSpread(t *testing.T) {
	if got := Consistency([]float64{0, 100}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestConsistency_SingleRating(t *testing.T) {
	if got := Consistency([]float64{73}); got != 100 {
		t.Fatalf("expected 100 for a single rating, got %d", got)
	}
}

func TestCompleteness(t *testing.T) {
	if got := Completeness(3, 6); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	if got := Completeness(0, 0); got != 0 {
		t.Fatalf("expected 0 when no departments configured, got %d", got)
	}
	if got := Completeness(6, 6); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestRecommend_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Recommendation
	}{
		{80, Ready},
		{79, NeedsImprovement},
		{60, NeedsImprovement},
		{59, NotReady},
		{0, NotReady},
		{100, Ready},
	}
	for _, tc := range cases {
		if got := Recommend(tc.score); got != tc.want {
			t.Fatalf("Recommend(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
