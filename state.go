package fixflow

import (
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/fixer"
	"github.com/randalmurphal/fixflow/review"
	"github.com/randalmurphal/fixflow/sandbox"
	"github.com/randalmurphal/fixflow/search"
	"github.com/randalmurphal/fixflow/tracker"
)

// Status is the terminal disposition of a run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// =============================================================================
// Embeddable State Components
// =============================================================================

// IssueState tracks the fetched issue and its analysis.
type IssueState struct {
	Issue    *tracker.Issue    `json:"issue,omitempty"`
	Analysis *analyze.Analysis `json:"analysis,omitempty"`
}

// StackState tracks the detected stack fingerprint.
type StackState struct {
	Fingerprint *detect.Fingerprint `json:"fingerprint,omitempty"`
}

// SearchState tracks code search results. ProjectMap caches the repo
// structure summary so revisits of the search step do not rescan.
type SearchState struct {
	ProjectMap   string           `json:"projectMap,omitempty"`
	Queries      []search.Query   `json:"queries,omitempty"`
	Snippets     []search.Snippet `json:"snippets,omitempty"`
	UsedFallback bool             `json:"usedFallback,omitempty"`
}

// FixState tracks fix generation across attempts. ReviewFeedback holds
// the reviewer's objection to the current fix; empty means no pending
// feedback. Failures accumulates verification failures for the whole run
// so later attempts can avoid repeating them.
type FixState struct {
	Attempts       int                    `json:"attempts"`
	Fix            *fixer.Fix             `json:"fix,omitempty"`
	FixDescription string                 `json:"fixDescription,omitempty"`
	ReviewFeedback string                 `json:"reviewFeedback,omitempty"`
	LastVerdict    *review.Verdict        `json:"lastVerdict,omitempty"`
	Failures       []fixer.FailureSummary `json:"failures,omitempty"`
}

// VerifyState tracks sandbox verification. TestResults is append-only:
// one entry per completed verification run, in order.
type VerifyState struct {
	TestResults []*sandbox.TestResult `json:"testResults,omitempty"`
}

// SubmitState tracks pull request submission. A submission error is
// recorded here and never downgrades a verified fix to failure.
type SubmitState struct {
	PR          *tracker.PullRequest `json:"pr,omitempty"`
	Branch      string               `json:"branch,omitempty"`
	SubmitError string               `json:"submitError,omitempty"`
}

// MetricsState tracks execution metrics.
type MetricsState struct {
	TokensIn  int           `json:"tokensIn"`
	TokensOut int           `json:"tokensOut"`
	Cost      float64       `json:"cost"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
}

// =============================================================================
// State - Full Run State
// =============================================================================

// State is the complete state of one fix run. It is passed by value
// through steps; steps return the updated copy.
type State struct {
	RunID    string           `json:"runId"`
	IssueRef tracker.IssueRef `json:"issueRef"`
	RepoPath string           `json:"repoPath,omitempty"`

	IssueState
	StackState
	SearchState
	FixState
	VerifyState
	SubmitState
	MetricsState

	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewState creates the initial state for a run.
func NewState(ref tracker.IssueRef) State {
	return State{
		RunID:    generateRunID(ref),
		IssueRef: ref,
		Status:   StatusRunning,
		MetricsState: MetricsState{
			StartTime: time.Now(),
		},
	}
}

// WithRepoPath sets the local checkout path.
func (s State) WithRepoPath(path string) State {
	s.RepoPath = path
	return s
}

// WithIssue sets the fetched issue.
func (s State) WithIssue(issue *tracker.Issue) State {
	s.Issue = issue
	return s
}

// WithFingerprint sets the stack fingerprint.
func (s State) WithFingerprint(fp *detect.Fingerprint) State {
	s.Fingerprint = fp
	return s
}

// AddTokens updates token metrics with a rough cost estimate
// ($3/1M in, $15/1M out).
func (s *State) AddTokens(in, out int) {
	s.TokensIn += in
	s.TokensOut += out
	s.Cost += (float64(in) * 0.000003) + (float64(out) * 0.000015)
}

// FinalizeDuration sets total duration from start time.
func (s *State) FinalizeDuration() {
	s.Duration = time.Since(s.StartTime)
}

// SetError records an error on the state.
func (s *State) SetError(err error) {
	if err != nil {
		s.Error = err.Error()
	}
}

// HasError returns true if state has an error.
func (s State) HasError() bool {
	return s.Error != ""
}

// LastTestResult returns the most recent verification result, or nil.
func (s State) LastTestResult() *sandbox.TestResult {
	if len(s.TestResults) == 0 {
		return nil
	}
	return s.TestResults[len(s.TestResults)-1]
}

// Verified reports whether the current fix has passed verification.
func (s State) Verified() bool {
	last := s.LastTestResult()
	return last != nil && last.Passed
}

// =============================================================================
// State Validation
// =============================================================================

// StateRequirement defines a state prerequisite.
type StateRequirement string

// Step prerequisites.
const (
	RequireIssue       StateRequirement = "issue"
	RequireAnalysis    StateRequirement = "analysis"
	RequireFingerprint StateRequirement = "fingerprint"
	RequireFix         StateRequirement = "fix"
	RequireRepoPath    StateRequirement = "repoPath"
	RequireVerified    StateRequirement = "verified"
)

// Validate checks that the state satisfies each requirement.
func (s State) Validate(requirements ...StateRequirement) error {
	for _, req := range requirements {
		switch req {
		case RequireIssue:
			if s.Issue == nil {
				return ErrNoIssue
			}
		case RequireAnalysis:
			if s.Analysis == nil {
				return ErrNoAnalysis
			}
		case RequireFingerprint:
			if s.Fingerprint == nil {
				return ErrNoFingerprint
			}
		case RequireFix:
			if s.Fix == nil {
				return ErrNoFix
			}
		case RequireRepoPath:
			if s.RepoPath == "" {
				return ErrNoRepoPath
			}
		case RequireVerified:
			if !s.Verified() {
				return ErrNoVerification
			}
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateRunID creates a unique, sortable run ID.
func generateRunID(ref tracker.IssueRef) string {
	suffix, err := nanoid.Generate(runIDAlphabet, 6)
	if err != nil {
		suffix = "000000"
	}
	return fmt.Sprintf("%s-%s-%d-%s",
		time.Now().Format("2006-01-02"), ref.Repo, ref.Number, suffix)
}

// Summary returns a human-readable summary of the run state.
func (s State) Summary() string {
	var phase string
	switch {
	case s.PR != nil:
		phase = "submitted"
	case s.Verified():
		phase = "verified"
	case s.Fix != nil:
		phase = "generated"
	case s.Analysis != nil:
		phase = "analyzed"
	default:
		phase = "pending"
	}

	return fmt.Sprintf("Run %s [%s/%s]: %s, attempt %d (tokens: %d in, %d out, cost: $%.4f)",
		s.RunID, s.Status, phase, s.IssueRef, s.Attempts,
		s.TokensIn, s.TokensOut, s.Cost)
}
