package analyze

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/prompt"
	"github.com/randalmurphal/fixflow/tracker"
)

// LLM is the model-backed analysis tier. It renders the analyze-issue
// prompt, asks the model for a structured triage, and falls back to the
// heuristic analyzer when the model is unavailable or returns garbage.
type LLM struct {
	client   llm.Client
	prompts  *prompt.Loader
	fallback Analyzer
}

// NewLLM creates the two-tier analyzer. A nil client means heuristic only.
func NewLLM(client llm.Client, prompts *prompt.Loader) *LLM {
	if prompts == nil {
		prompts = prompt.NewLoader(".")
	}
	return &LLM{
		client:   client,
		prompts:  prompts,
		fallback: NewHeuristic(),
	}
}

// Analyze implements Analyzer.
func (a *LLM) Analyze(ctx context.Context, issue *tracker.Issue) *Analysis {
	base := a.fallback.Analyze(ctx, issue)
	if a.client == nil {
		return base
	}

	p, err := a.prompts.LoadWithVars("analyze-issue", map[string]any{
		"IssueRef": issue.Ref.String(),
		"Title":    issue.Title,
		"Body":     issue.Body,
		"Labels":   issue.Labels,
	})
	if err != nil {
		slog.Warn("analyze prompt failed to render, using heuristic analysis", "error", err)
		return base
	}

	result, err := a.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: p}},
	})
	if err != nil {
		slog.Warn("issue analysis model call failed, using heuristic analysis", "error", err)
		return base
	}

	parsed := &Analysis{}
	if err := json.Unmarshal([]byte(prompt.ExtractJSON(result.Content)), parsed); err != nil {
		slog.Warn("unparseable analysis output, using heuristic analysis", "error", err)
		return base
	}
	if strings.TrimSpace(parsed.Problem) == "" {
		return base
	}

	// The heuristic scrape is cheap signal the model may have missed.
	parsed.Keywords = mergeUnique(parsed.Keywords, base.Keywords)
	parsed.MentionedFiles = mergeUnique(parsed.MentionedFiles, base.MentionedFiles)

	// Models drift off the enum; the heuristic classification never does.
	if !validSeverity(parsed.Severity) {
		parsed.Severity = base.Severity
	}
	if !validCategory(parsed.Category) {
		parsed.Category = base.Category
	}
	return parsed
}

func mergeUnique(primary, extra []string) []string {
	seen := make(map[string]bool, len(primary))
	out := make([]string, 0, len(primary)+len(extra))
	for _, s := range primary {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range extra {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
