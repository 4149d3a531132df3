package detect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Fingerprint describes a repository's stack and how to exercise it.
type Fingerprint struct {
	Language       string `json:"language"`
	Runtime        string `json:"runtime,omitempty"`
	PackageManager string `json:"packageManager,omitempty"`
	InstallCommand string `json:"installCommand,omitempty"`
	TestCommand    string `json:"testCommand"`
}

// Detector produces a stack fingerprint for a repository.
type Detector interface {
	Detect(ctx context.Context, repoPath string) (*Fingerprint, error)
}

// probe maps a marker file to the fingerprint it implies. Order matters:
// the first match wins, so more specific markers come first.
type probe struct {
	marker string
	fp     Fingerprint
}

var probes = []probe{
	{"go.mod", Fingerprint{
		Language:       "go",
		Runtime:        "go",
		PackageManager: "go modules",
		InstallCommand: "go mod download",
		TestCommand:    "go test ./...",
	}},
	{"Cargo.toml", Fingerprint{
		Language:       "rust",
		Runtime:        "cargo",
		PackageManager: "cargo",
		InstallCommand: "cargo fetch",
		TestCommand:    "cargo test",
	}},
	{"pnpm-lock.yaml", Fingerprint{
		Language:       "typescript",
		Runtime:        "node",
		PackageManager: "pnpm",
		InstallCommand: "pnpm install --frozen-lockfile",
		TestCommand:    "pnpm test",
	}},
	{"yarn.lock", Fingerprint{
		Language:       "typescript",
		Runtime:        "node",
		PackageManager: "yarn",
		InstallCommand: "yarn install --frozen-lockfile",
		TestCommand:    "yarn test",
	}},
	{"package.json", Fingerprint{
		Language:       "javascript",
		Runtime:        "node",
		PackageManager: "npm",
		InstallCommand: "npm ci",
		TestCommand:    "npm test",
	}},
	{"pyproject.toml", Fingerprint{
		Language:       "python",
		Runtime:        "python3",
		PackageManager: "pip",
		InstallCommand: "pip install -e .",
		TestCommand:    "python -m pytest",
	}},
	{"requirements.txt", Fingerprint{
		Language:       "python",
		Runtime:        "python3",
		PackageManager: "pip",
		InstallCommand: "pip install -r requirements.txt",
		TestCommand:    "python -m pytest",
	}},
	{"pom.xml", Fingerprint{
		Language:       "java",
		Runtime:        "jvm",
		PackageManager: "maven",
		InstallCommand: "mvn -q dependency:resolve",
		TestCommand:    "mvn -q test",
	}},
	{"build.gradle", Fingerprint{
		Language:       "java",
		Runtime:        "jvm",
		PackageManager: "gradle",
		InstallCommand: "gradle dependencies",
		TestCommand:    "gradle test",
	}},
	{"Gemfile", Fingerprint{
		Language:       "ruby",
		Runtime:        "ruby",
		PackageManager: "bundler",
		InstallCommand: "bundle install",
		TestCommand:    "bundle exec rake test",
	}},
}

// Heuristic is the deterministic detection tier. It never fails for an
// existing directory: unknown stacks get a generic fingerprint.
type Heuristic struct{}

// NewHeuristic creates the deterministic detector.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Detect probes the repository for well-known manifest files.
func (h *Heuristic) Detect(_ context.Context, repoPath string) (*Fingerprint, error) {
	info, err := os.Stat(repoPath)
	if err != nil {
		return nil, fmt.Errorf("stat repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path %s is not a directory", repoPath)
	}

	for _, p := range probes {
		if _, err := os.Stat(filepath.Join(repoPath, p.marker)); err == nil {
			fp := p.fp
			// package.json with a TypeScript config is a TypeScript project
			if p.marker == "package.json" {
				if _, err := os.Stat(filepath.Join(repoPath, "tsconfig.json")); err == nil {
					fp.Language = "typescript"
				}
			}
			return &fp, nil
		}
	}

	// Unknown stack: report it honestly rather than guessing commands.
	return &Fingerprint{
		Language:    "unknown",
		TestCommand: "true",
	}, nil
}
