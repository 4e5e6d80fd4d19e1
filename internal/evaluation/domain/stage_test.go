package domain

import "testing"

func TestStatusTerminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusInProgress.IsTerminal() {
		t.Fatal("pending and in_progress must not be terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatal("completed and failed must be terminal")
	}
}

func TestStatusCanSubmit(t *testing.T) {
	if StatusInProgress.CanSubmit() {
		t.Fatal("an in-flight evaluation must block a new submission")
	}
	for _, s := range []Status{StatusPending, StatusCompleted, StatusFailed} {
		if !s.CanSubmit() {
			t.Fatalf("status %s should allow submission", s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, ok := ParseStatus("completed"); !ok {
		t.Fatal("expected completed to parse")
	}
	if _, ok := ParseStatus("cancelled"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
