package candidate

import "testing"

func TestStateSequence(t *testing.T) {
	t.Parallel()

	order := []State{
		StatePending,
		StateExtracting,
		StateParsing,
		StateScoring,
		StateGeneratingQuestions,
		StateCompleted,
	}

	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Next()
		if !ok {
			t.Fatalf("expected successor for %s", order[i])
		}
		if next != order[i+1] {
			t.Fatalf("expected %s after %s, got %s", order[i+1], order[i], next)
		}
	}

	if _, ok := StateCompleted.Next(); ok {
		t.Fatalf("completed must not have a successor")
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		from  State
		to    State
		allow bool
	}{
		{"forward step", StatePending, StateExtracting, true},
		{"skip stage", StateExtracting, StateScoring, false},
		{"backward", StateScoring, StateParsing, false},
		{"fail from active", StateParsing, StateFailed, true},
		{"cancel from pending", StatePending, StateCancelled, true},
		{"leave completed", StateCompleted, StateFailed, false},
		{"leave failed", StateFailed, StateCancelled, false},
		{"leave cancelled", StateCancelled, StateExtracting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanTransition(tt.from, tt.to); got != tt.allow {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allow)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []State{StateCompleted, StateFailed, StateCancelled} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}

	for _, s := range []State{StatePending, StateExtracting, StateParsing, StateScoring, StateGeneratingQuestions} {
		if s.Terminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	r := NewRecord("resumes/jane.pdf")
	if r.ID == "" {
		t.Fatalf("expected generated id")
	}
	if again := NewRecord("resumes/jane.pdf"); again.ID != r.ID {
		t.Fatalf("expected stable id for the same source, got %s and %s", r.ID, again.ID)
	}
	if other := NewRecord("resumes/john.pdf"); other.ID == r.ID {
		t.Fatalf("expected distinct ids for distinct sources")
	}
	if r.State != StatePending {
		t.Fatalf("expected pending state, got %s", r.State)
	}
	if r.Scored() {
		t.Fatalf("fresh record must not be scored")
	}
}

func TestValidRecommendation(t *testing.T) {
	t.Parallel()

	for _, r := range []string{RecommendationHire, RecommendationMaybe, RecommendationPass} {
		if !ValidRecommendation(r) {
			t.Fatalf("expected %q to be valid", r)
		}
	}

	if ValidRecommendation("strong hire") {
		t.Fatalf("unexpected recommendation accepted")
	}
}
