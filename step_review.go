package fixflow

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/notify"
	"github.com/randalmurphal/fixflow/review"
)

// ReviewFixStep asks the reviewer to judge the candidate fix.
//
// Review is advisory: sandbox verification is the real gate. A missing
// reviewer or a broken review pipeline approves rather than stalling the
// run. A rejection sets feedback for the next generation attempt and
// costs no verification.
//
// Prerequisites: state.Analysis and state.Fix must be set
// Updates: state.LastVerdict, state.ReviewFeedback
func ReviewFixStep(ctx context.Context, state State) (State, error) {
	if err := state.Validate(RequireAnalysis, RequireFix); err != nil {
		return state, err
	}

	verdict := &review.Verdict{Approved: true, Category: review.CategoryOK}
	if reviewer := ReviewerFromContext(ctx); reviewer != nil {
		v, err := reviewer.Review(ctx, state.Analysis, state.Fix)
		if err != nil {
			slog.Warn("review failed, approving", "runId", state.RunID, "error", err)
		} else {
			verdict = v
		}
	}

	state.LastVerdict = verdict
	if verdict.Approved {
		state.ReviewFeedback = ""
	} else {
		state.ReviewFeedback = verdict.Feedback
	}

	slog.Info("fix reviewed",
		"runId", state.RunID,
		"attempt", state.Attempts,
		"approved", verdict.Approved,
		"category", verdict.Category)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		if err := artifacts.SaveJSON(state.RunID, artifact.AttemptReview(state.Attempts), verdict); err != nil {
			slog.Warn("save review artifact", "runId", state.RunID, "error", err)
		}
	}

	if !verdict.Approved {
		notifyEvent(ctx, state, notify.Event{
			Type:     notify.EventFixRejected,
			Step:     StepReviewFix,
			Message:  verdict.Feedback,
			Severity: notify.SeverityWarning,
			Metadata: map[string]any{"attempt": state.Attempts, "category": verdict.Category},
		})
	}

	return state, nil
}
