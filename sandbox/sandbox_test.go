package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/git"
)

func testFingerprint(testCommand string) *detect.Fingerprint {
	return &detect.Fingerprint{Language: "sh", TestCommand: testCommand}
}

func provisionedLocal(t *testing.T, testCommand string) *Local {
	t.Helper()

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "hello.txt"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sb := NewLocal(WithRunner(git.NewMockRunner()))
	if err := sb.Provision(context.Background(), src, testFingerprint(testCommand)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	t.Cleanup(func() { sb.Cleanup() })
	return sb
}

func TestLocal_Provision_CopiesCheckout(t *testing.T) {
	sb := provisionedLocal(t, "true")

	content, err := sb.ReadFile("hello.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if content != "hello\n" {
		t.Errorf("content = %q", content)
	}

	if _, err := os.Stat(filepath.Join(sb.Path(), ".git")); !os.IsNotExist(err) {
		t.Error(".git should not be copied into the sandbox")
	}
}

func TestLocal_Provision_Twice(t *testing.T) {
	sb := provisionedLocal(t, "true")
	if err := sb.Provision(context.Background(), t.TempDir(), testFingerprint("true")); err == nil {
		t.Error("expected error on second Provision")
	}
}

func TestLocal_Provision_RunsInstallCommand(t *testing.T) {
	src := t.TempDir()
	runner := git.NewMockRunner()

	sb := NewLocal(WithRunner(runner))
	fp := testFingerprint("true")
	fp.InstallCommand = "echo install"
	if err := sb.Provision(context.Background(), src, fp); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	defer sb.Cleanup()

	if !runner.WasCalled("sh", "-c", "echo install") {
		t.Error("install command was not run")
	}
}

func TestLocal_WriteFile(t *testing.T) {
	sb := provisionedLocal(t, "true")

	if err := sb.WriteFile("pkg/new.go", "package pkg\n"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	content, err := sb.ReadFile("pkg/new.go")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if content != "package pkg\n" {
		t.Errorf("content = %q", content)
	}
}

func TestLocal_WriteFile_RejectsEscapes(t *testing.T) {
	sb := provisionedLocal(t, "true")

	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		if err := sb.WriteFile(path, "x"); err == nil {
			t.Errorf("WriteFile(%q) should fail", path)
		}
	}
}

func TestLocal_RunTests_Pass(t *testing.T) {
	sb := provisionedLocal(t, "echo ok")

	result, err := sb.RunTests(context.Background())
	if err != nil {
		t.Fatalf("RunTests: %v", err)
	}
	if !result.Passed {
		t.Errorf("passed = false, output %q", result.Output)
	}
	if result.ExitCode != 0 {
		t.Errorf("exitCode = %d", result.ExitCode)
	}
	if !strings.Contains(result.Output, "ok") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestLocal_RunTests_FailureIsResultNotError(t *testing.T) {
	sb := provisionedLocal(t, "echo boom; exit 3")

	result, err := sb.RunTests(context.Background())
	if err != nil {
		t.Fatalf("RunTests: %v", err)
	}
	if result.Passed {
		t.Error("passed = true for failing command")
	}
	if result.ExitCode != 3 {
		t.Errorf("exitCode = %d, want 3", result.ExitCode)
	}
	if !strings.Contains(result.Output, "boom") {
		t.Errorf("output = %q", result.Output)
	}
	if result.Error == "" {
		t.Error("error should describe the failure")
	}
}

func TestLocal_UnprovisionedUse(t *testing.T) {
	sb := NewLocal()
	if _, err := sb.RunTests(context.Background()); err != ErrNotProvisioned {
		t.Errorf("RunTests err = %v, want ErrNotProvisioned", err)
	}
	if err := sb.WriteFile("x", "y"); err != ErrNotProvisioned {
		t.Errorf("WriteFile err = %v, want ErrNotProvisioned", err)
	}
}

func TestLocal_Cleanup_Idempotent(t *testing.T) {
	sb := provisionedLocal(t, "true")
	dir := sb.Path()

	if err := sb.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("sandbox dir still exists after Cleanup")
	}
	if err := sb.Cleanup(); err != nil {
		t.Errorf("second Cleanup: %v", err)
	}
}

func TestMock_ScriptedResults(t *testing.T) {
	m := NewMock().WithResults(
		&TestResult{Passed: false, Output: "FAIL"},
		&TestResult{Passed: true, Output: "ok"},
	)
	if err := m.Provision(context.Background(), "src", testFingerprint("true")); err != nil {
		t.Fatal(err)
	}

	r1, _ := m.RunTests(context.Background())
	r2, _ := m.RunTests(context.Background())
	r3, _ := m.RunTests(context.Background())
	if r1.Passed || !r2.Passed || !r3.Passed {
		t.Errorf("results = %v %v %v", r1.Passed, r2.Passed, r3.Passed)
	}
	if m.RunCount != 3 {
		t.Errorf("runCount = %d", m.RunCount)
	}
}
