package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoader_EmbeddedPrompts(t *testing.T) {
	l := NewLoader(t.TempDir())

	for _, name := range []string{"analyze-issue", "generate-queries", "generate-fix", "review-fix"} {
		t.Run(name, func(t *testing.T) {
			if !l.Exists(name) {
				t.Fatalf("embedded prompt %s not found", name)
			}
		})
	}
}

func TestLoader_ProjectOverride(t *testing.T) {
	dir := t.TempDir()
	overrideDir := filepath.Join(dir, ".fixflow", "prompts")
	if err := os.MkdirAll(overrideDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(overrideDir, "analyze-issue.txt"), []byte("custom {{.Title}}"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir)
	got, err := l.LoadWithVars("analyze-issue", map[string]any{"Title": "crash"})
	if err != nil {
		t.Fatalf("LoadWithVars: %v", err)
	}
	if got != "custom crash" {
		t.Errorf("got %q, want %q", got, "custom crash")
	}
}

func TestLoader_RenderVars(t *testing.T) {
	l := NewLoader(t.TempDir())

	got, err := l.LoadWithVars("analyze-issue", map[string]any{
		"IssueRef": "octocat/hello#42",
		"Title":    "panic on empty input",
		"Body":     "steps to reproduce",
		"Labels":   []string{"bug", "crash"},
	})
	if err != nil {
		t.Fatalf("LoadWithVars: %v", err)
	}
	for _, want := range []string{"octocat/hello#42", "panic on empty input", "bug, crash"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestLoader_NotFound(t *testing.T) {
	l := NewLoader(t.TempDir())
	if _, err := l.Load("no-such-prompt"); err == nil {
		t.Error("expected error for missing prompt")
	}
}

func TestBuilder(t *testing.T) {
	got := NewBuilder().
		AddSection("Context", "some background").
		AddList("Steps", []string{"one", "two"}).
		AddFile("main.go", "package main").
		Add("trailing instruction").
		Build()

	for _, want := range []string{
		"## Context\n\nsome background",
		"## Steps\n\n- one\n- two",
		`<file path="main.go">` + "\npackage main\n</file>",
		"trailing instruction",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("built prompt missing %q", want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
	}{
		{"json fence", "Here you go:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", "[1, 2]"},
		{"leading prose", `The answer is {"a": 1}`, `{"a": 1}`},
		{"plain json", `{"a": 1}`, `{"a": 1}`},
		{"array", `[{"p": "x"}]`, `[{"p": "x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
