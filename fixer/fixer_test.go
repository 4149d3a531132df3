package fixer

import (
	"context"
	"strings"
	"testing"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/search"
)

func testRequest() Request {
	return Request{
		Analysis: &analyze.Analysis{
			Problem:          "off-by-one in pagination",
			ExpectedBehavior: "last page shows remaining items",
			ActualBehavior:   "last page is empty",
		},
		Fingerprint: &detect.Fingerprint{Language: "go", TestCommand: "go test ./..."},
		Snippets: []search.Snippet{
			{File: "page.go", StartLine: 10, EndLine: 14, Content: "func pageCount() {}"},
		},
	}
}

const validFixJSON = `{
  "description": "fix off-by-one in pageCount",
  "files": [{"path": "page.go", "content": "package page\n"}]
}`

func TestLLM_Generate(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("```json\n" + validFixJSON + "\n```")

	fix, err := NewLLM(mock, nil).Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fix.Description != "fix off-by-one in pageCount" {
		t.Errorf("description = %q", fix.Description)
	}
	if len(fix.Files) != 1 || fix.Files[0].Path != "page.go" {
		t.Errorf("files = %+v", fix.Files)
	}
}

func TestLLM_Generate_PromptCarriesFeedbackAndFailures(t *testing.T) {
	var captured string
	mock := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		captured = req.Messages[0].Content
		return &llm.CompletionResponse{Content: validFixJSON}, nil
	})

	req := testRequest()
	req.Feedback = "the loop bound is still wrong"
	req.Failures = []FailureSummary{{Attempt: 1, Output: "FAIL: TestPageCount", ExitCode: 1}}

	if _, err := NewLLM(mock, nil).Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{
		"the loop bound is still wrong",
		"FAIL: TestPageCount",
		"Attempt 1 (exit code 1)",
		"off-by-one in pagination",
		"func pageCount() {}",
	} {
		if !strings.Contains(captured, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLLM_Generate_NoFeedbackOnFirstAttempt(t *testing.T) {
	var captured string
	mock := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		captured = req.Messages[0].Content
		return &llm.CompletionResponse{Content: validFixJSON}, nil
	})

	if _, err := NewLLM(mock, nil).Generate(context.Background(), testRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(captured, "Reviewer feedback") {
		t.Error("first attempt prompt should not carry a feedback section")
	}
}

func TestLLM_Generate_RejectsBadOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I cannot fix this."},
		{"no files", `{"description": "noop", "files": []}`},
		{"missing path", `{"files": [{"path": "", "content": "x"}]}`},
		{"escapes repo", `{"files": [{"path": "../etc/passwd", "content": "x"}]}`},
		{"absolute path", `{"files": [{"path": "/etc/passwd", "content": "x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockClient("").WithResponses(tt.response)
			if _, err := NewLLM(mock, nil).Generate(context.Background(), testRequest()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLLM_Generate_NilClient(t *testing.T) {
	if _, err := NewLLM(nil, nil).Generate(context.Background(), testRequest()); err == nil {
		t.Error("expected error with no client")
	}
}

func TestFormatFailures_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxFailureOutput+500)
	got := formatFailures([]FailureSummary{{Attempt: 2, Output: long, ExitCode: 2}})
	if !strings.Contains(got, "truncated") {
		t.Error("expected truncation marker")
	}
	if len(got) > maxFailureOutput+200 {
		t.Errorf("formatted output too long: %d", len(got))
	}
}
