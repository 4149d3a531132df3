package fixflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/search"
)

// Search budgets. Snippets feed the generation prompt, so both are kept
// small enough to leave room for the issue analysis and prior failures.
const (
	maxSearchQueries   = 8
	maxSearchSnippets  = 12
	projectMapMaxFiles = 150
)

// SearchCodeStep locates code relevant to the analysis.
//
// Degrades in two stages: if the model-backed query generator fails, or
// its queries find nothing, a broader keyword-derived query set is
// searched instead and UsedFallback is set. A search that still finds
// nothing is not an error; generation proceeds with whatever exists.
//
// Prerequisites: state.Analysis and state.RepoPath must be set
// Updates: state.ProjectMap, state.Queries, state.Snippets, state.UsedFallback
func SearchCodeStep(ctx context.Context, state State) (State, error) {
	if err := state.Validate(RequireAnalysis, RequireRepoPath); err != nil {
		return state, err
	}

	engine := SearchEngineFromContext(ctx)
	if engine == nil {
		return state, fmt.Errorf("search.Engine not found in context")
	}

	if state.ProjectMap == "" {
		state.ProjectMap = search.BuildProjectMap(state.RepoPath, projectMapMaxFiles)
	}

	queries := generatedQueries(ctx, state)
	snippets := runSearch(ctx, engine, state, queries)

	if len(snippets) == 0 {
		queries = search.KeywordQueries(state.Analysis, maxSearchQueries)
		snippets = runSearch(ctx, engine, state, queries)
		state.UsedFallback = true
	}

	state.Queries = queries
	state.Snippets = snippets

	slog.Debug("code search completed",
		"runId", state.RunID,
		"queries", len(queries),
		"snippets", len(snippets),
		"fallback", state.UsedFallback)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		if err := artifacts.SaveJSON(state.RunID, artifact.ArtifactSnippets, snippets); err != nil {
			slog.Warn("save snippets artifact", "runId", state.RunID, "error", err)
		}
	}

	return state, nil
}

// generatedQueries asks the model-backed generator for the primary query
// set. A missing generator or a failed call yields nil, which triggers
// the keyword fallback.
func generatedQueries(ctx context.Context, state State) []search.Query {
	gen := QueryGeneratorFromContext(ctx)
	if gen == nil {
		return nil
	}
	queries, err := gen.Generate(ctx, state.Analysis, state.ProjectMap, maxSearchQueries)
	if err != nil {
		slog.Warn("query generation failed, using keyword fallback",
			"runId", state.RunID, "error", err)
		return nil
	}
	return queries
}

// runSearch executes the queries, treating any engine failure as an
// empty result. Search is best-effort context gathering.
func runSearch(ctx context.Context, engine search.Engine, state State, queries []search.Query) []search.Snippet {
	if len(queries) == 0 {
		return nil
	}
	snippets, err := engine.Search(ctx, state.RepoPath, queries, maxSearchSnippets)
	if err != nil {
		slog.Warn("code search failed", "runId", state.RunID, "error", err)
		return nil
	}
	return snippets
}
