package fixflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/fixflow/artifact"
)

// AnalyzeIssueStep fetches the issue and extracts a structured analysis.
// The fetch is fatal on failure (no issue, no run); analysis itself never
// fails, degrading to heuristics inside the analyzer.
//
// Prerequisites: tracker client in context (unless the issue is pre-loaded)
// Updates: state.Issue, state.Analysis
func AnalyzeIssueStep(ctx context.Context, state State) (State, error) {
	if state.Issue == nil {
		trk := TrackerFromContext(ctx)
		if trk == nil {
			return state, fmt.Errorf("tracker.Client not found in context")
		}
		issue, err := trk.FetchIssue(ctx, state.IssueRef)
		if err != nil {
			state.SetError(err)
			return state, fmt.Errorf("fetch issue %s: %w", state.IssueRef, err)
		}
		state = state.WithIssue(issue)
	}

	analyzer := AnalyzerFromContext(ctx)
	if analyzer == nil {
		return state, fmt.Errorf("analyze.Analyzer not found in context")
	}

	state.Analysis = analyzer.Analyze(ctx, state.Issue)

	slog.Debug("issue analyzed",
		"runId", state.RunID,
		"severity", state.Analysis.Severity,
		"category", state.Analysis.Category,
		"keywords", len(state.Analysis.Keywords))

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		if err := artifacts.SaveJSON(state.RunID, artifact.ArtifactAnalysis, state.Analysis); err != nil {
			slog.Warn("save analysis artifact", "runId", state.RunID, "error", err)
		}
	}

	return state, nil
}
