package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestHeuristic_Detect(t *testing.T) {
	tests := []struct {
		name        string
		markers     []string
		wantLang    string
		wantManager string
		wantTest    string
	}{
		{"go module", []string{"go.mod"}, "go", "go modules", "go test ./..."},
		{"rust crate", []string{"Cargo.toml"}, "rust", "cargo", "cargo test"},
		{"npm project", []string{"package.json"}, "javascript", "npm", "npm test"},
		{"typescript project", []string{"package.json", "tsconfig.json"}, "typescript", "npm", "npm test"},
		{"pnpm beats package.json", []string{"package.json", "pnpm-lock.yaml"}, "typescript", "pnpm", "pnpm test"},
		{"python requirements", []string{"requirements.txt"}, "python", "pip", "python -m pytest"},
		{"python pyproject", []string{"pyproject.toml"}, "python", "pip", "python -m pytest"},
		{"maven", []string{"pom.xml"}, "java", "maven", "mvn -q test"},
		{"unknown", nil, "unknown", "", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, m := range tt.markers {
				writeFile(t, dir, m)
			}

			fp, err := NewHeuristic().Detect(context.Background(), dir)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if fp.Language != tt.wantLang {
				t.Errorf("language = %q, want %q", fp.Language, tt.wantLang)
			}
			if fp.PackageManager != tt.wantManager {
				t.Errorf("packageManager = %q, want %q", fp.PackageManager, tt.wantManager)
			}
			if fp.TestCommand != tt.wantTest {
				t.Errorf("testCommand = %q, want %q", fp.TestCommand, tt.wantTest)
			}
		})
	}
}

func TestHeuristic_Detect_MissingPath(t *testing.T) {
	_, err := NewHeuristic().Detect(context.Background(), "/nonexistent/repo/path")
	if err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLLM_Detect_NilClientFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod")

	fp, err := NewLLM(nil).Detect(context.Background(), dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if fp.Language != "go" {
		t.Errorf("language = %q, want go", fp.Language)
	}
}
