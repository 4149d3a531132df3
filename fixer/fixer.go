package fixer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/prompt"
	"github.com/randalmurphal/fixflow/search"
)

// FileChange is a complete replacement for one file.
type FileChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Fix is a candidate fix: a description plus full contents for every
// changed file.
type Fix struct {
	Description string       `json:"description"`
	Files       []FileChange `json:"files"`
}

// FailureSummary captures why an earlier attempt failed verification, so
// later attempts can avoid repeating it.
type FailureSummary struct {
	Attempt  int    `json:"attempt"`
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
}

// Request carries everything a generator needs for one attempt.
type Request struct {
	Analysis    *analyze.Analysis
	Fingerprint *detect.Fingerprint
	Snippets    []search.Snippet
	Feedback    string // reviewer feedback on the previous attempt, empty on the first
	Failures    []FailureSummary
}

// Generator produces candidate fixes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Fix, error)
}

// maxFailureOutput bounds how much of each failing test log is replayed
// into the prompt.
const maxFailureOutput = 2000

// LLM is the model-backed fix generator.
type LLM struct {
	client  llm.Client
	prompts *prompt.Loader
}

// NewLLM creates a model-backed generator.
func NewLLM(client llm.Client, prompts *prompt.Loader) *LLM {
	if prompts == nil {
		prompts = prompt.NewLoader(".")
	}
	return &LLM{client: client, prompts: prompts}
}

// Generate implements Generator.
func (g *LLM) Generate(ctx context.Context, req Request) (*Fix, error) {
	if g.client == nil {
		return nil, fmt.Errorf("no model client configured")
	}
	if req.Analysis == nil {
		return nil, fmt.Errorf("fix generation requires an analysis")
	}

	p, err := g.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	result, err := g.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: p}},
	})
	if err != nil {
		return nil, fmt.Errorf("fix generation: %w", err)
	}

	fix := &Fix{}
	if err := json.Unmarshal([]byte(prompt.ExtractJSON(result.Content)), fix); err != nil {
		return nil, fmt.Errorf("parse fix output: %w", err)
	}
	if err := validateFix(fix); err != nil {
		return nil, err
	}
	return fix, nil
}

func (g *LLM) buildPrompt(req Request) (string, error) {
	fp := req.Fingerprint
	if fp == nil {
		fp = &detect.Fingerprint{Language: "unknown", TestCommand: "true"}
	}

	snippets := prompt.NewBuilder()
	for _, s := range req.Snippets {
		snippets.AddFile(fmt.Sprintf("%s:%d-%d", s.File, s.StartLine, s.EndLine), s.Content)
	}
	snippetBlock := snippets.Build()
	if snippetBlock == "" {
		snippetBlock = "(no relevant snippets found; rely on the problem statement)"
	}

	rendered, err := g.prompts.LoadWithVars("generate-fix", map[string]any{
		"Problem":     req.Analysis.Problem,
		"Expected":    req.Analysis.ExpectedBehavior,
		"Actual":      req.Analysis.ActualBehavior,
		"Language":    fp.Language,
		"TestCommand": fp.TestCommand,
		"Feedback":    req.Feedback,
		"Failures":    formatFailures(req.Failures),
		"Snippets":    snippetBlock,
	})
	if err != nil {
		return "", fmt.Errorf("render fix prompt: %w", err)
	}
	return rendered, nil
}

// formatFailures renders past verification failures, most recent last.
func formatFailures(failures []FailureSummary) string {
	if len(failures) == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&b, "Attempt %d (exit code %d):\n", f.Attempt, f.ExitCode)
		output := f.Output
		if len(output) > maxFailureOutput {
			output = output[:maxFailureOutput] + "\n... (truncated)"
		}
		b.WriteString(output)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func validateFix(fix *Fix) error {
	if len(fix.Files) == 0 {
		return fmt.Errorf("fix contains no file changes")
	}
	for _, f := range fix.Files {
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("fix contains a file change without a path")
		}
		if strings.HasPrefix(f.Path, "/") || strings.Contains(f.Path, "..") {
			return fmt.Errorf("fix touches path outside the repository: %s", f.Path)
		}
	}
	return nil
}
