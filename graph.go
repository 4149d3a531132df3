package fixflow

import (
	"context"
	"fmt"
	"log/slog"
)

// Step names.
const (
	StepAnalyzeIssue = "analyze_issue"
	StepDetectStack  = "detect_stack"
	StepSearchCode   = "search_code"
	StepGenerateFix  = "generate_fix"
	StepReviewFix    = "review_fix"
	StepVerifyFix    = "verify_fix"
	StepSubmitFix    = "submit_fix"

	// Terminal pseudo-steps.
	StepDone   = "done"
	StepGiveUp = "give_up"
)

// StepFunc is one workflow step: it takes the run state and returns the
// updated copy. An error aborts the run.
type StepFunc func(ctx context.Context, state State) (State, error)

// Runner executes the fix workflow as a plain loop over a static edge
// table. Most steps have exactly one successor; review and verification
// route dynamically to form the two retry cycles.
type Runner struct {
	opts    Options
	steps   map[string]StepFunc
	edges   map[string]string
	routers map[string]func(State) string
}

// NewRunner builds the workflow graph for the given options.
func NewRunner(opts Options) *Runner {
	opts = opts.withDefaults()
	return &Runner{
		opts: opts,
		steps: map[string]StepFunc{
			StepAnalyzeIssue: AnalyzeIssueStep,
			StepDetectStack:  DetectStackStep,
			StepSearchCode:   SearchCodeStep,
			StepGenerateFix:  GenerateFixStep,
			StepReviewFix:    ReviewFixStep,
			StepVerifyFix:    VerifyFix(opts.TestTimeout),
			StepSubmitFix:    SubmitFix(opts),
		},
		edges: map[string]string{
			StepAnalyzeIssue: StepDetectStack,
			StepDetectStack:  StepSearchCode,
			StepSearchCode:   StepGenerateFix,
			StepGenerateFix:  StepReviewFix,
			StepSubmitFix:    StepDone,
		},
		routers: map[string]func(State) string{
			StepReviewFix: AfterReview,
			StepVerifyFix: func(s State) string { return AfterVerify(s, opts.MaxAttempts) },
		},
	}
}

// Run drives the state machine from analysis to a terminal step. It
// returns ErrAttemptsExhausted when the attempt ceiling is reached
// without a verified fix, and whatever step error aborted the run
// otherwise.
func (r *Runner) Run(ctx context.Context, state State) (State, error) {
	step := StepAnalyzeIssue
	for step != StepDone && step != StepGiveUp {
		if err := ctx.Err(); err != nil {
			state.SetError(err)
			state.Status = StatusFailed
			return state, err
		}

		// The ceiling is enforced here, before generation consumes
		// another attempt, so no route can overshoot it.
		if step == StepGenerateFix && state.Attempts >= r.opts.MaxAttempts {
			step = StepGiveUp
			break
		}

		fn, ok := r.steps[step]
		if !ok {
			err := fmt.Errorf("%w: %s", ErrUnknownStep, step)
			state.SetError(err)
			state.Status = StatusFailed
			return state, err
		}

		slog.Debug("executing step", "runId", state.RunID, "step", step)

		var err error
		state, err = fn(ctx, state)
		if err != nil {
			state.SetError(err)
			state.Status = StatusFailed
			return state, fmt.Errorf("step %s: %w", step, err)
		}

		if route, ok := r.routers[step]; ok {
			step = route(state)
		} else {
			step = r.edges[step]
		}
		if step == "" {
			err := fmt.Errorf("%w: no successor", ErrUnknownStep)
			state.SetError(err)
			state.Status = StatusFailed
			return state, err
		}
	}

	if step == StepGiveUp {
		state.Status = StatusFailed
		state.SetError(ErrAttemptsExhausted)
		return state, ErrAttemptsExhausted
	}

	if state.Status == StatusRunning {
		state.Status = StatusSucceeded
	}
	return state, nil
}
