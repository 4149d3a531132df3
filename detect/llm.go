package detect

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/prompt"
)

// LLM is the AI detection tier. It shows a model the repository's top-level
// listing plus the heuristic guess and asks for corrections (monorepos,
// unusual test runners). Any failure falls back to the heuristic result,
// so Detect never returns an error for a readable repository.
type LLM struct {
	client   llm.Client
	fallback Detector
}

// NewLLM creates the two-tier detector.
func NewLLM(client llm.Client) *LLM {
	return &LLM{
		client:   client,
		fallback: NewHeuristic(),
	}
}

// Detect implements Detector.
func (d *LLM) Detect(ctx context.Context, repoPath string) (*Fingerprint, error) {
	base, err := d.fallback.Detect(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	if d.client == nil {
		return base, nil
	}

	result, err := d.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: d.buildPrompt(repoPath, base)}},
	})
	if err != nil {
		slog.Debug("stack detection model call failed, using heuristic", "error", err)
		return base, nil
	}

	refined := &Fingerprint{}
	if err := json.Unmarshal([]byte(prompt.ExtractJSON(result.Content)), refined); err != nil {
		slog.Debug("unparseable stack detection output, using heuristic", "error", err)
		return base, nil
	}
	if refined.Language == "" || refined.TestCommand == "" {
		return base, nil
	}
	return refined, nil
}

func (d *LLM) buildPrompt(repoPath string, base *Fingerprint) string {
	b := prompt.NewBuilder()
	b.AddSection("Repository listing", topLevelListing(repoPath))
	heuristicJSON, _ := json.Marshal(base)
	b.AddSection("Heuristic fingerprint", string(heuristicJSON))
	b.Add("Correct the fingerprint if the listing suggests a different stack " +
		"or test runner. Respond with a JSON object with keys: language, " +
		"runtime, packageManager, installCommand, testCommand.")
	return b.Build()
}

// topLevelListing returns a sorted listing of the repository root,
// directories suffixed with a slash.
func topLevelListing(repoPath string) string {
	entries, err := os.ReadDir(repoPath)
	if err != nil {
		return "(unreadable)"
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n")
}
