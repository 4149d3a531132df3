package fixflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/sandbox"
	"github.com/randalmurphal/fixflow/tracker"
)

func TestNewState(t *testing.T) {
	state := NewState(testRef())

	if state.Status != StatusRunning {
		t.Errorf("status = %s, want %s", state.Status, StatusRunning)
	}
	if state.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", state.Attempts)
	}
	if state.StartTime.IsZero() {
		t.Error("start time not set")
	}
	if !strings.Contains(state.RunID, "hello-42") {
		t.Errorf("run ID = %q, want repo and issue number in it", state.RunID)
	}

	other := NewState(testRef())
	if other.RunID == state.RunID {
		t.Error("run IDs collide")
	}
}

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		reqs    []StateRequirement
		wantErr error
	}{
		{
			name:    "missing issue",
			state:   State{},
			reqs:    []StateRequirement{RequireIssue},
			wantErr: ErrNoIssue,
		},
		{
			name:    "missing analysis",
			state:   State{IssueState: IssueState{Issue: &tracker.Issue{}}},
			reqs:    []StateRequirement{RequireIssue, RequireAnalysis},
			wantErr: ErrNoAnalysis,
		},
		{
			name:    "missing fingerprint",
			state:   State{},
			reqs:    []StateRequirement{RequireFingerprint},
			wantErr: ErrNoFingerprint,
		},
		{
			name:    "missing fix",
			state:   State{},
			reqs:    []StateRequirement{RequireFix},
			wantErr: ErrNoFix,
		},
		{
			name:    "missing repo path",
			state:   State{},
			reqs:    []StateRequirement{RequireRepoPath},
			wantErr: ErrNoRepoPath,
		},
		{
			name:    "unverified",
			state:   State{},
			reqs:    []StateRequirement{RequireVerified},
			wantErr: ErrNoVerification,
		},
		{
			name: "failing result is not verified",
			state: State{VerifyState: VerifyState{
				TestResults: []*sandbox.TestResult{{Passed: false}},
			}},
			reqs:    []StateRequirement{RequireVerified},
			wantErr: ErrNoVerification,
		},
		{
			name: "all satisfied",
			state: State{
				RepoPath: "/tmp/repo",
				IssueState: IssueState{
					Issue:    &tracker.Issue{},
					Analysis: &analyze.Analysis{},
				},
				StackState: StackState{Fingerprint: &detect.Fingerprint{}},
				VerifyState: VerifyState{
					TestResults: []*sandbox.TestResult{{Passed: true}},
				},
			},
			reqs: []StateRequirement{
				RequireIssue, RequireAnalysis, RequireFingerprint,
				RequireRepoPath, RequireVerified,
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate(tt.reqs...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStateAddTokens(t *testing.T) {
	state := NewState(testRef())
	state.AddTokens(1000, 500)
	state.AddTokens(2000, 1000)

	if state.TokensIn != 3000 {
		t.Errorf("tokens in = %d, want 3000", state.TokensIn)
	}
	if state.TokensOut != 1500 {
		t.Errorf("tokens out = %d, want 1500", state.TokensOut)
	}
	wantCost := 3000*0.000003 + 1500*0.000015
	if state.Cost < wantCost-1e-9 || state.Cost > wantCost+1e-9 {
		t.Errorf("cost = %f, want %f", state.Cost, wantCost)
	}
}

func TestStateVerified(t *testing.T) {
	var state State
	if state.Verified() {
		t.Error("empty state verified")
	}
	if state.LastTestResult() != nil {
		t.Error("empty state has a test result")
	}

	state.TestResults = append(state.TestResults, &sandbox.TestResult{Passed: true})
	state.TestResults = append(state.TestResults, &sandbox.TestResult{Passed: false, ExitCode: 1})
	if state.Verified() {
		t.Error("verified despite failing last result")
	}

	state.TestResults = append(state.TestResults, &sandbox.TestResult{Passed: true})
	if !state.Verified() {
		t.Error("not verified despite passing last result")
	}
	if got := state.LastTestResult(); got == nil || !got.Passed {
		t.Errorf("last result = %+v", got)
	}
}

func TestStateSummary(t *testing.T) {
	state := NewState(testRef())
	if !strings.Contains(state.Summary(), "pending") {
		t.Errorf("summary = %q", state.Summary())
	}

	state.Analysis = &analyze.Analysis{}
	if !strings.Contains(state.Summary(), "analyzed") {
		t.Errorf("summary = %q", state.Summary())
	}

	state.Fix = testFix()
	if !strings.Contains(state.Summary(), "generated") {
		t.Errorf("summary = %q", state.Summary())
	}

	state.TestResults = append(state.TestResults, &sandbox.TestResult{Passed: true})
	if !strings.Contains(state.Summary(), "verified") {
		t.Errorf("summary = %q", state.Summary())
	}

	state.PR = &tracker.PullRequest{URL: "https://example.test/pr/1"}
	if !strings.Contains(state.Summary(), "submitted") {
		t.Errorf("summary = %q", state.Summary())
	}
}
