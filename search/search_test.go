package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/git"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func tenLines() string {
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("x", i))
		b.WriteString("\n")
	}
	return b.String()
}

func TestGrep_Search(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", tenLines())

	mock := git.NewMockRunner()
	mock.OnAnyCommand().Return("./main.go:5:line xxxxx", nil)

	engine := NewGrep(WithRunner(mock))
	snippets, err := engine.Search(context.Background(), dir, []Query{
		{Pattern: "xxxxx", ContextLines: 2},
	}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(snippets) != 1 {
		t.Fatalf("got %d snippets, want 1", len(snippets))
	}
	s := snippets[0]
	if s.File != "main.go" {
		t.Errorf("file = %q, want main.go", s.File)
	}
	if s.StartLine != 3 || s.EndLine != 7 {
		t.Errorf("range = %d-%d, want 3-7", s.StartLine, s.EndLine)
	}
	if !strings.Contains(s.Content, "line xxxxx") {
		t.Errorf("content missing match line: %q", s.Content)
	}
	if !mock.WasCalled("grep") {
		t.Error("grep was not invoked")
	}
}

func TestGrep_Search_MergesOverlappingRegions(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.go", tenLines())

	mock := git.NewMockRunner()
	mock.OnAnyCommand().Return("./a.go:4:line xxxx\n./a.go:6:line xxxxxx", nil)

	snippets, err := NewGrep(WithRunner(mock)).Search(context.Background(), dir, []Query{
		{Pattern: "line", ContextLines: 2},
	}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(snippets) != 1 {
		t.Fatalf("got %d snippets, want 1 merged", len(snippets))
	}
	if snippets[0].StartLine != 2 || snippets[0].EndLine != 8 {
		t.Errorf("range = %d-%d, want 2-8", snippets[0].StartLine, snippets[0].EndLine)
	}
	if snippets[0].Score != 2 {
		t.Errorf("score = %v, want 2", snippets[0].Score)
	}
}

func TestGrep_Search_NoMatchesIsEmptyNotError(t *testing.T) {
	mock := git.NewMockRunner()
	mock.OnAnyCommand().Return("", &git.CommandError{Command: "grep", Err: os.ErrNotExist})

	snippets, err := NewGrep(WithRunner(mock)).Search(context.Background(), t.TempDir(), []Query{
		{Pattern: "nothing"},
	}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("got %d snippets, want 0", len(snippets))
	}
}

func TestGrep_Search_CapsSnippets(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.go", tenLines())
	writeTestFile(t, dir, "b.go", tenLines())
	writeTestFile(t, dir, "c.go", tenLines())

	mock := git.NewMockRunner()
	mock.OnAnyCommand().Return("./a.go:1:line x\n./b.go:1:line x\n./c.go:1:line x", nil)

	snippets, err := NewGrep(WithRunner(mock)).Search(context.Background(), dir, []Query{
		{Pattern: "line"},
	}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 2 {
		t.Errorf("got %d snippets, want 2", len(snippets))
	}
}

func TestParseGrepLine(t *testing.T) {
	tests := []struct {
		line     string
		wantFile string
		wantNum  int
		wantOK   bool
	}{
		{"./pkg/x.go:12:some content", "pkg/x.go", 12, true},
		{"x.go:3:a:b:c", "x.go", 3, true},
		{"no colons here", "", 0, false},
		{"file.go:notanumber:x", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		file, num, ok := parseGrepLine(tt.line)
		if ok != tt.wantOK || file != tt.wantFile || num != tt.wantNum {
			t.Errorf("parseGrepLine(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.line, file, num, ok, tt.wantFile, tt.wantNum, tt.wantOK)
		}
	}
}

func TestKeywordQueries(t *testing.T) {
	a := &analyze.Analysis{
		Keywords:       []string{"deadlock", "session"},
		MentionedFiles: []string{"internal/auth/session.go"},
	}

	queries := KeywordQueries(a, 5)
	if len(queries) != 3 {
		t.Fatalf("got %d queries, want 3", len(queries))
	}
	if queries[0].Pattern != `session\.go` {
		t.Errorf("file query = %q, want escaped basename", queries[0].Pattern)
	}
	if queries[1].Pattern != "deadlock" || queries[2].Pattern != "session" {
		t.Errorf("keyword queries = %q, %q", queries[1].Pattern, queries[2].Pattern)
	}
	for _, q := range queries {
		if q.ContextLines != fallbackContextLines {
			t.Errorf("query %q contextLines = %d, want %d", q.Pattern, q.ContextLines, fallbackContextLines)
		}
	}
}

func TestKeywordQueries_WiderWindowThanDefault(t *testing.T) {
	queries := KeywordQueries(&analyze.Analysis{Problem: "timeout when uploading files"}, 5)
	for _, q := range queries {
		if q.ContextLines <= defaultContextLines {
			t.Errorf("fallback query %q contextLines = %d, want > %d",
				q.Pattern, q.ContextLines, defaultContextLines)
		}
	}
}

func TestKeywordQueries_ProblemFallback(t *testing.T) {
	queries := KeywordQueries(&analyze.Analysis{Problem: "timeout when uploading files"}, 5)
	if len(queries) == 0 {
		t.Fatal("expected queries from problem statement")
	}
	if queries[0].Pattern != "timeout" {
		t.Errorf("first pattern = %q, want timeout", queries[0].Pattern)
	}
}

func TestKeywordQueries_Cap(t *testing.T) {
	a := &analyze.Analysis{Keywords: []string{"a1", "b2b2", "c3c3", "d4d4", "e5e5", "f6f6"}}
	if got := len(KeywordQueries(a, 3)); got != 3 {
		t.Errorf("got %d queries, want 3", got)
	}
}

type stubClient struct {
	llm.Client
	content string
	err     error
}

func (c *stubClient) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content}, nil
}

func TestLLMQueries_Generate_ParsesContextLines(t *testing.T) {
	g := NewLLMQueries(&stubClient{content: `[
		{"pattern": "sessionStore", "fileType": "go", "contextLines": 10, "reason": "store"},
		{"pattern": "loginHandler", "contextLines": 500, "reason": "handler"},
		{"pattern": "authCache", "contextLines": -3, "reason": "cache"}
	]`}, nil)

	queries, err := g.Generate(context.Background(), &analyze.Analysis{Problem: "login broken"}, "", 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(queries) != 3 {
		t.Fatalf("got %d queries, want 3", len(queries))
	}

	if queries[0].ContextLines != 10 {
		t.Errorf("contextLines = %d, want 10", queries[0].ContextLines)
	}
	if queries[1].ContextLines != maxContextLines {
		t.Errorf("oversized contextLines = %d, want clamp to %d", queries[1].ContextLines, maxContextLines)
	}
	if queries[2].ContextLines != 0 {
		t.Errorf("negative contextLines = %d, want 0", queries[2].ContextLines)
	}
}

func TestBuildProjectMap(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "README.md", "hi\n")
	writeTestFile(t, dir, "cmd/app/main.go", "package main\n")
	writeTestFile(t, dir, "node_modules/pkg/index.js", "x\n")

	m := BuildProjectMap(dir, 50)

	if !strings.Contains(m, "cmd/") {
		t.Errorf("map missing cmd/: %q", m)
	}
	if !strings.Contains(m, "README.md") {
		t.Errorf("map missing README.md: %q", m)
	}
	if strings.Contains(m, "node_modules") {
		t.Errorf("map should skip node_modules: %q", m)
	}
}
