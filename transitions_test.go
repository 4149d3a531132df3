package fixflow

import (
	"testing"

	"github.com/randalmurphal/fixflow/review"
	"github.com/randalmurphal/fixflow/sandbox"
)

func TestAfterReview(t *testing.T) {
	tests := []struct {
		name    string
		verdict *review.Verdict
		want    string
	}{
		{"approved", approve(), StepVerifyFix},
		{"rejected", reject("off by one"), StepGenerateFix},
		{"no verdict", nil, StepGenerateFix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{FixState: FixState{LastVerdict: tt.verdict}}
			if got := AfterReview(state); got != tt.want {
				t.Errorf("AfterReview() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAfterVerify(t *testing.T) {
	tests := []struct {
		name        string
		attempts    int
		lastPassed  bool
		maxAttempts int
		want        string
	}{
		{"passed first try", 1, true, 3, StepSubmitFix},
		{"passed on last attempt", 3, true, 3, StepSubmitFix},
		{"failed with attempts left", 1, false, 3, StepGenerateFix},
		{"failed at ceiling", 3, false, 3, StepGiveUp},
		{"failed past ceiling", 4, false, 3, StepGiveUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{
				FixState: FixState{Attempts: tt.attempts},
				VerifyState: VerifyState{
					TestResults: []*sandbox.TestResult{{Passed: tt.lastPassed}},
				},
			}
			if got := AfterVerify(state, tt.maxAttempts); got != tt.want {
				t.Errorf("AfterVerify() = %s, want %s", got, tt.want)
			}
		})
	}
}
