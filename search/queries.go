package search

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/prompt"
)

// QueryGenerator proposes search queries for an analyzed issue.
type QueryGenerator interface {
	Generate(ctx context.Context, analysis *analyze.Analysis, projectMap string, max int) ([]Query, error)
}

// LLMQueries is the model-backed query generator.
type LLMQueries struct {
	client  llm.Client
	prompts *prompt.Loader
}

// NewLLMQueries creates a model-backed query generator.
func NewLLMQueries(client llm.Client, prompts *prompt.Loader) *LLMQueries {
	if prompts == nil {
		prompts = prompt.NewLoader(".")
	}
	return &LLMQueries{client: client, prompts: prompts}
}

// Generate implements QueryGenerator. It returns an error when the model
// is unavailable or its output is unusable; callers fall back to
// KeywordQueries.
func (g *LLMQueries) Generate(ctx context.Context, analysis *analyze.Analysis, projectMap string, max int) ([]Query, error) {
	if g.client == nil {
		return nil, fmt.Errorf("no model client configured")
	}
	if max <= 0 {
		max = 5
	}

	p, err := g.prompts.LoadWithVars("generate-queries", map[string]any{
		"Problem":    analysis.Problem,
		"Expected":   analysis.ExpectedBehavior,
		"Actual":     analysis.ActualBehavior,
		"Keywords":   analysis.Keywords,
		"ProjectMap": projectMap,
		"MaxQueries": max,
	})
	if err != nil {
		return nil, fmt.Errorf("render query prompt: %w", err)
	}

	result, err := g.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: p}},
	})
	if err != nil {
		return nil, fmt.Errorf("query generation: %w", err)
	}

	var queries []Query
	if err := json.Unmarshal([]byte(prompt.ExtractJSON(result.Content)), &queries); err != nil {
		return nil, fmt.Errorf("parse query output: %w", err)
	}

	out := queries[:0]
	for _, q := range queries {
		if strings.TrimSpace(q.Pattern) == "" {
			continue
		}
		if q.ContextLines < 0 {
			q.ContextLines = 0
		}
		if q.ContextLines > maxContextLines {
			q.ContextLines = maxContextLines
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("model proposed no usable queries")
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

var regexMeta = regexp.MustCompile(`[\\.+*?()|\[\]{}^$]`)

// KeywordQueries builds deterministic fallback queries from the analysis:
// one per mentioned file and one per keyword. Each query carries a wider
// context window than generated queries get, since bare keywords land
// less precisely. It always returns at least one query for a non-empty
// analysis.
func KeywordQueries(analysis *analyze.Analysis, max int) []Query {
	if max <= 0 {
		max = 5
	}

	var queries []Query
	for _, f := range analysis.MentionedFiles {
		base := f
		if i := strings.LastIndex(base, "/"); i != -1 {
			base = base[i+1:]
		}
		queries = append(queries, Query{
			Pattern:      escapePattern(base),
			ContextLines: fallbackContextLines,
			Reason:       "file named in the issue",
		})
	}
	for _, k := range analysis.Keywords {
		queries = append(queries, Query{
			Pattern:      escapePattern(k),
			ContextLines: fallbackContextLines,
			Reason:       "issue keyword",
		})
	}
	if len(queries) == 0 {
		for _, w := range strings.Fields(analysis.Problem) {
			if len(w) >= 4 {
				queries = append(queries, Query{
					Pattern:      escapePattern(w),
					ContextLines: fallbackContextLines,
					Reason:       "problem statement",
				})
			}
		}
	}

	if len(queries) > max {
		queries = queries[:max]
	}
	return queries
}

// escapePattern neutralizes regex metacharacters so keywords are matched
// literally by grep -E.
func escapePattern(s string) string {
	return regexMeta.ReplaceAllString(s, `\$0`)
}
