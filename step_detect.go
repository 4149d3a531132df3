package fixflow

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/detect"
)

// DetectStackStep ensures the state carries a stack fingerprint.
//
// Detection normally happens once at run entry, before the sandbox is
// provisioned; inside the loop this step is a cache read. It only probes
// the repository when the entry detection was skipped (direct Runner use).
//
// Prerequisites: state.RepoPath must be set (only when no fingerprint cached)
// Updates: state.Fingerprint
func DetectStackStep(ctx context.Context, state State) (State, error) {
	if state.Fingerprint != nil {
		return state, nil
	}

	if err := state.Validate(RequireRepoPath); err != nil {
		return state, err
	}

	detector := DetectorFromContext(ctx)
	if detector == nil {
		detector = detect.NewHeuristic()
	}

	fp, err := detector.Detect(ctx, state.RepoPath)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	state.Fingerprint = fp

	slog.Info("stack detected",
		"runId", state.RunID,
		"language", fp.Language,
		"testCommand", fp.TestCommand)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		if err := artifacts.SaveJSON(state.RunID, artifact.ArtifactFingerprint, fp); err != nil {
			slog.Warn("save fingerprint artifact", "runId", state.RunID, "error", err)
		}
	}

	return state, nil
}
