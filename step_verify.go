package fixflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/fixer"
	"github.com/randalmurphal/fixflow/notify"
)

// VerifyFix returns the verification step. Each completed run of the
// project's test command appends exactly one result to TestResults; a
// failing run also records a failure summary for later attempts.
//
// Prerequisites: state.Fix and state.Fingerprint must be set
// Updates: state.TestResults, state.Failures, state.Status on success
func VerifyFix(testTimeout time.Duration) StepFunc {
	return func(ctx context.Context, state State) (State, error) {
		if err := state.Validate(RequireFix, RequireFingerprint); err != nil {
			return state, err
		}

		sb := SandboxFromContext(ctx)
		if sb == nil {
			return state, fmt.Errorf("sandbox.Sandbox not found in context")
		}

		for _, fc := range state.Fix.Files {
			if err := sb.WriteFile(fc.Path, fc.Content); err != nil {
				state.SetError(err)
				return state, fmt.Errorf("apply fix to sandbox: %w", err)
			}
		}

		runCtx := ctx
		if testTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, testTimeout)
			defer cancel()
		}

		result, err := sb.RunTests(runCtx)
		if err != nil {
			state.SetError(err)
			return state, fmt.Errorf("run tests: %w", err)
		}

		state.TestResults = append(state.TestResults, result)

		slog.Info("fix verified",
			"runId", state.RunID,
			"attempt", state.Attempts,
			"passed", result.Passed,
			"duration", result.Duration)

		if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
			if err := artifacts.SaveJSON(state.RunID, artifact.AttemptTests(state.Attempts), result); err != nil {
				slog.Warn("save test artifact", "runId", state.RunID, "error", err)
			}
		}

		if result.Passed {
			state.Status = StatusSucceeded
			notifyEvent(ctx, state, notify.Event{
				Type:     notify.EventVerificationPassed,
				Step:     StepVerifyFix,
				Message:  fmt.Sprintf("tests passed on attempt %d", state.Attempts),
				Severity: notify.SeverityInfo,
				Metadata: map[string]any{"attempt": state.Attempts},
			})
			return state, nil
		}

		state.Failures = append(state.Failures, fixer.FailureSummary{
			Attempt:  state.Attempts,
			Output:   result.Output,
			ExitCode: result.ExitCode,
		})

		notifyEvent(ctx, state, notify.Event{
			Type:     notify.EventVerificationFailed,
			Step:     StepVerifyFix,
			Message:  fmt.Sprintf("tests failed on attempt %d (exit code %d)", state.Attempts, result.ExitCode),
			Severity: notify.SeverityWarning,
			Metadata: map[string]any{"attempt": state.Attempts, "exitCode": result.ExitCode},
		})

		return state, nil
	}
}
