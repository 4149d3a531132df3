package analyze

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/randalmurphal/fixflow/tracker"
)

// Severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue categories.
const (
	CategoryBug     = "bug"
	CategoryFeature = "feature"
	CategoryDocs    = "docs"
)

// Analysis is the structured reading of an issue report.
type Analysis struct {
	Problem          string   `json:"problem"`
	ExpectedBehavior string   `json:"expectedBehavior,omitempty"`
	ActualBehavior   string   `json:"actualBehavior,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	MentionedFiles   []string `json:"mentionedFiles,omitempty"`
	Severity         string   `json:"severity,omitempty"`
	Category         string   `json:"category,omitempty"`
	IsFrontend       bool     `json:"isFrontend,omitempty"`
}

// Analyzer produces an analysis for an issue. Implementations must always
// return a usable analysis for a non-nil issue; degraded output is
// acceptable, failure is not.
type Analyzer interface {
	Analyze(ctx context.Context, issue *tracker.Issue) *Analysis
}

// =============================================================================
// Heuristic tier
// =============================================================================

// Heuristic extracts an analysis from the issue text alone. It is the
// fallback when no model is available and the floor the LLM tier can
// never sink below.
type Heuristic struct{}

// NewHeuristic creates the text-scraping analyzer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"in": true, "on": true, "at": true, "to": true, "of": true, "for": true,
	"with": true, "when": true, "then": true, "this": true, "that": true,
	"it": true, "its": true, "i": true, "we": true, "you": true, "my": true,
	"not": true, "no": true, "if": true, "as": true, "by": true, "from": true,
	"does": true, "do": true, "doesn": true, "can": true, "cannot": true,
	"should": true, "would": true, "have": true, "has": true, "get": true,
	"after": true, "before": true, "there": true, "here": true,
}

var (
	filePathPattern = regexp.MustCompile(`[\w./-]+\.(go|ts|tsx|js|jsx|py|rs|java|rb|c|cc|cpp|h|hpp|yaml|yml|json|toml|sql|sh)\b`)
	wordPattern     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]{3,}`)
)

// Analyze implements Analyzer.
func (h *Heuristic) Analyze(_ context.Context, issue *tracker.Issue) *Analysis {
	text := issue.Title + "\n" + issue.Body

	a := &Analysis{
		Problem:          strings.TrimSpace(issue.Title),
		ExpectedBehavior: extractSection(issue.Body, "expected"),
		ActualBehavior:   extractSection(issue.Body, "actual"),
		Keywords:         extractKeywords(text, 10),
		MentionedFiles:   extractFiles(text),
		Severity:         classifySeverity(text, issue.Labels),
		Category:         classifyCategory(text, issue.Labels),
		IsFrontend:       looksFrontend(text, issue.Labels),
	}
	if a.Problem == "" {
		a.Problem = firstLine(issue.Body)
	}
	return a
}

// extractSection finds lines like "Expected: ..." or "## Expected behavior"
// followed by text, a common issue template shape.
func extractSection(body, section string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lower := strings.ToLower(strings.TrimLeft(line, "#* "))
		if !strings.HasPrefix(lower, section) {
			continue
		}
		if _, rest, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(rest) != "" {
			return strings.TrimSpace(rest)
		}
		// Header form: take the next non-empty line.
		for _, next := range lines[i+1:] {
			if s := strings.TrimSpace(next); s != "" {
				return s
			}
		}
	}
	return ""
}

func extractKeywords(text string, max int) []string {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(text, -1) {
		lw := strings.ToLower(strings.Trim(w, "."))
		if stopwords[lw] || len(lw) < 4 {
			continue
		}
		counts[lw]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	// Frequent first, alphabetical within a frequency for stable output.
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > max {
		words = words[:max]
	}
	return words
}

func extractFiles(text string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, m := range filePathPattern.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			files = append(files, m)
		}
	}
	return files
}

func classifySeverity(text string, labels []string) string {
	lower := strings.ToLower(text + " " + strings.Join(labels, " "))
	switch {
	case containsAny(lower, "data loss", "security", "vulnerability", "critical",
		"crash", "panic", "segfault", "fatal", "hang"):
		return SeverityHigh
	case containsAny(lower, "wrong", "incorrect", "fails", "broke", "error", "regression"):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func classifyCategory(text string, labels []string) string {
	lower := strings.ToLower(text + " " + strings.Join(labels, " "))
	switch {
	case containsAny(lower, "documentation", "docs", "readme", "typo", "changelog"):
		return CategoryDocs
	case containsAny(lower, "feature request", "enhancement", "feature",
		"would be nice", "add support", "please add"):
		return CategoryFeature
	default:
		return CategoryBug
	}
}

func validSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

func validCategory(c string) bool {
	switch c {
	case CategoryBug, CategoryFeature, CategoryDocs:
		return true
	}
	return false
}

func looksFrontend(text string, labels []string) bool {
	lower := strings.ToLower(text + " " + strings.Join(labels, " "))
	return containsAny(lower, "frontend", "css", "layout", "render", " ui ", "button", "browser", "component")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
