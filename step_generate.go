package fixflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/fixer"
	"github.com/randalmurphal/fixflow/notify"
)

// GenerateFixStep produces a candidate fix for the current attempt.
//
// The attempt counter is incremented before generation runs, so a failed
// generation still consumes an attempt. Pending reviewer feedback is
// consumed here: it is folded into the request and cleared so a stale
// objection never leaks into a later attempt.
//
// Prerequisites: state.Analysis must be set
// Updates: state.Attempts, state.Fix, state.FixDescription, state.ReviewFeedback
func GenerateFixStep(ctx context.Context, state State) (State, error) {
	if err := state.Validate(RequireAnalysis); err != nil {
		return state, err
	}

	generator := GeneratorFromContext(ctx)
	if generator == nil {
		return state, fmt.Errorf("fixer.Generator not found in context")
	}

	state.Attempts++

	feedback := state.ReviewFeedback
	state.ReviewFeedback = ""

	fix, err := generator.Generate(ctx, fixer.Request{
		Analysis:    state.Analysis,
		Fingerprint: state.Fingerprint,
		Snippets:    state.Snippets,
		Feedback:    feedback,
		Failures:    state.Failures,
	})
	if err != nil {
		state.SetError(err)
		return state, fmt.Errorf("generate fix (attempt %d): %w", state.Attempts, err)
	}

	state.Fix = fix
	state.FixDescription = fix.Description

	slog.Info("fix generated",
		"runId", state.RunID,
		"attempt", state.Attempts,
		"files", len(fix.Files))

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		if err := artifacts.SaveJSON(state.RunID, artifact.AttemptFix(state.Attempts), fix); err != nil {
			slog.Warn("save fix artifact", "runId", state.RunID, "error", err)
		}
	}

	notifyEvent(ctx, state, notify.Event{
		Type:     notify.EventFixGenerated,
		Step:     StepGenerateFix,
		Message:  fix.Description,
		Severity: notify.SeverityInfo,
		Metadata: map[string]any{"attempt": state.Attempts, "files": len(fix.Files)},
	})

	return state, nil
}
