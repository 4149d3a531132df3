package fixflow

import "errors"

// Step precondition errors. A step returning one of these indicates a
// wiring bug, not a bad issue.
var (
	// ErrNoIssue indicates a step ran before the issue was fetched.
	ErrNoIssue = errors.New("issue not loaded")

	// ErrNoAnalysis indicates a step ran before issue analysis.
	ErrNoAnalysis = errors.New("analysis required")

	// ErrNoFingerprint indicates a step ran before stack detection.
	ErrNoFingerprint = errors.New("stack fingerprint required")

	// ErrNoFix indicates a step ran without a generated fix.
	ErrNoFix = errors.New("no fix to process")

	// ErrNoRepoPath indicates the repository was never materialized.
	ErrNoRepoPath = errors.New("repository path not set")

	// ErrNoVerification indicates submission ran without a passing test result.
	ErrNoVerification = errors.New("fix has not passed verification")
)

// Run-level errors.
var (
	// ErrAttemptsExhausted indicates the fix attempt ceiling was reached
	// without a verified fix.
	ErrAttemptsExhausted = errors.New("fix attempts exhausted")

	// ErrUnknownStep indicates the step graph routed to a step that does
	// not exist.
	ErrUnknownStep = errors.New("unknown workflow step")
)
