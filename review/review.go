package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/fixer"
	"github.com/randalmurphal/fixflow/prompt"
)

// Verdict categories.
const (
	CategoryOK       = "ok"
	CategoryLogic    = "logic"
	CategorySyntax   = "syntax"
	CategoryStyle    = "style"
	CategorySecurity = "security"
)

// Verdict is the outcome of reviewing a fix. Feedback is non-empty
// exactly when the fix is rejected.
type Verdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
	Category string `json:"category,omitempty"`
}

// Reviewer examines a fix before verification.
type Reviewer interface {
	Review(ctx context.Context, analysis *analyze.Analysis, fix *fixer.Fix) (*Verdict, error)
}

// LLM is the model-backed reviewer.
type LLM struct {
	client  llm.Client
	prompts *prompt.Loader
}

// NewLLM creates a model-backed reviewer.
func NewLLM(client llm.Client, prompts *prompt.Loader) *LLM {
	if prompts == nil {
		prompts = prompt.NewLoader(".")
	}
	return &LLM{client: client, prompts: prompts}
}

// Review implements Reviewer. A broken review pipeline approves rather
// than wedging the workflow; the sandbox run is the real gate.
func (r *LLM) Review(ctx context.Context, analysis *analyze.Analysis, fix *fixer.Fix) (*Verdict, error) {
	if fix == nil || len(fix.Files) == 0 {
		return nil, fmt.Errorf("nothing to review")
	}
	if r.client == nil {
		return &Verdict{Approved: true, Category: CategoryOK}, nil
	}

	files := prompt.NewBuilder()
	for _, f := range fix.Files {
		files.AddFile(f.Path, f.Content)
	}

	p, err := r.prompts.LoadWithVars("review-fix", map[string]any{
		"Problem":     analysis.Problem,
		"Expected":    analysis.ExpectedBehavior,
		"Actual":      analysis.ActualBehavior,
		"Description": fix.Description,
		"Files":       files.Build(),
	})
	if err != nil {
		slog.Warn("review prompt failed to render, approving", "error", err)
		return &Verdict{Approved: true, Category: CategoryOK}, nil
	}

	result, err := r.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: p}},
	})
	if err != nil {
		slog.Warn("review model call failed, approving", "error", err)
		return &Verdict{Approved: true, Category: CategoryOK}, nil
	}

	return parseVerdict(result.Content), nil
}

// parseVerdict reads the model's verdict. Unparseable output and
// rejections without feedback both collapse to approval, since a
// rejection the fixer cannot act on would only burn an attempt.
func parseVerdict(output string) *Verdict {
	v := &Verdict{}
	if err := json.Unmarshal([]byte(prompt.ExtractJSON(output)), v); err != nil {
		slog.Warn("unparseable review output, approving", "error", err)
		return &Verdict{Approved: true, Category: CategoryOK}
	}

	v.Feedback = strings.TrimSpace(v.Feedback)
	if !v.Approved && v.Feedback == "" {
		slog.Warn("review rejected without feedback, approving")
		return &Verdict{Approved: true, Category: CategoryOK}
	}
	if v.Approved {
		v.Feedback = ""
		if v.Category == "" {
			v.Category = CategoryOK
		}
	} else if !validCategory(v.Category) {
		v.Category = CategoryLogic
	}
	return v
}

func validCategory(c string) bool {
	switch c {
	case CategoryLogic, CategorySyntax, CategoryStyle, CategorySecurity:
		return true
	}
	return false
}
