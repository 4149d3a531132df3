package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/git"
)

// TestResult is the outcome of one verification run.
type TestResult struct {
	Passed   bool          `json:"passed"`
	Output   string        `json:"output"`
	Error    string        `json:"error,omitempty"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Sandbox is an isolated workspace for exercising fixes.
type Sandbox interface {
	// Provision prepares the workspace from a local checkout. It must be
	// called once before any other method.
	Provision(ctx context.Context, repoPath string, fp *detect.Fingerprint) error
	// WriteFile replaces a file's content, creating parent directories.
	// The path is relative to the workspace root.
	WriteFile(path, content string) error
	// ReadFile returns a workspace file's content.
	ReadFile(path string) (string, error)
	// RunTests runs the fingerprint's test command.
	RunTests(ctx context.Context) (*TestResult, error)
	// Path returns the workspace root, empty before Provision.
	Path() string
	// Cleanup removes the workspace. Calling it twice is harmless.
	Cleanup() error
}

// ErrNotProvisioned is returned when a sandbox is used before Provision.
var ErrNotProvisioned = errors.New("sandbox: not provisioned")

// maxTestOutput bounds captured test output.
const maxTestOutput = 64 * 1024

// Local is a Sandbox backed by a scratch directory on the same machine.
type Local struct {
	dir    string
	fp     *detect.Fingerprint
	runner git.CommandRunner
}

// LocalOption configures a Local sandbox.
type LocalOption func(*Local)

// WithRunner sets a custom command runner for install commands.
func WithRunner(r git.CommandRunner) LocalOption {
	return func(l *Local) {
		l.runner = r
	}
}

// NewLocal creates an unprovisioned local sandbox.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{runner: &git.ExecRunner{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Provision implements Sandbox. The checkout is copied file by file,
// skipping VCS metadata and dependency directories, then the stack's
// install command runs so the test command has what it needs.
func (l *Local) Provision(ctx context.Context, repoPath string, fp *detect.Fingerprint) error {
	if l.dir != "" {
		return fmt.Errorf("sandbox already provisioned at %s", l.dir)
	}
	if fp == nil {
		return fmt.Errorf("sandbox requires a stack fingerprint")
	}

	dir, err := os.MkdirTemp("", "fixflow-sandbox-")
	if err != nil {
		return fmt.Errorf("create sandbox dir: %w", err)
	}

	if err := copyTree(ctx, repoPath, dir); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("copy checkout into sandbox: %w", err)
	}

	l.dir = dir
	l.fp = fp

	if fp.InstallCommand != "" {
		if out, err := l.runner.Run(dir, "sh", "-c", fp.InstallCommand); err != nil {
			slog.Warn("sandbox install command failed, tests may be degraded",
				"command", fp.InstallCommand, "output", truncate(out, 500), "error", err)
		}
	}

	slog.Debug("sandbox provisioned", "dir", dir, "language", fp.Language)
	return nil
}

// WriteFile implements Sandbox.
func (l *Local) WriteFile(path, content string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile implements Sandbox.
func (l *Local) ReadFile(path string) (string, error) {
	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// RunTests implements Sandbox. The command runs under sh -c so fingerprints
// can use shell syntax. A failing suite is a result, not an error; errors
// are reserved for the sandbox itself being unusable.
func (l *Local) RunTests(ctx context.Context) (*TestResult, error) {
	if l.dir == "" {
		return nil, ErrNotProvisioned
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", l.fp.TestCommand)
	cmd.Dir = l.dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	result := &TestResult{
		Passed:   err == nil,
		Output:   truncate(string(out), maxTestOutput),
		Duration: time.Since(start),
	}

	if err != nil {
		result.Error = err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Command never ran (missing shell, context cancelled).
			result.ExitCode = -1
		}
	}
	return result, nil
}

// Path implements Sandbox.
func (l *Local) Path() string {
	return l.dir
}

// Cleanup implements Sandbox.
func (l *Local) Cleanup() error {
	if l.dir == "" {
		return nil
	}
	dir := l.dir
	l.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove sandbox %s: %w", dir, err)
	}
	return nil
}

// resolve joins a relative path to the workspace root and rejects escapes.
func (l *Local) resolve(path string) (string, error) {
	if l.dir == "" {
		return "", ErrNotProvisioned
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path %s escapes the sandbox", path)
	}
	return filepath.Join(l.dir, clean), nil
}

// copySkipDirs are not copied into the sandbox.
var copySkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if copySkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
