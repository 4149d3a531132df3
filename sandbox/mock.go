package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/fixflow/detect"
)

// Mock is an in-memory Sandbox for workflow tests. Test results are
// consumed in order; when the script runs out the last result repeats.
type Mock struct {
	mu sync.Mutex

	ProvisionErr error
	RunErr       error
	Results      []*TestResult

	Files        map[string]string
	Provisioned  bool
	RunCount     int
	CleanupCount int

	resultIdx int
	fp        *detect.Fingerprint
}

// NewMock creates an empty mock sandbox.
func NewMock() *Mock {
	return &Mock{Files: make(map[string]string)}
}

// WithResults scripts the test results returned by successive RunTests calls.
func (m *Mock) WithResults(results ...*TestResult) *Mock {
	m.Results = results
	return m
}

// Provision implements Sandbox.
func (m *Mock) Provision(_ context.Context, _ string, fp *detect.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProvisionErr != nil {
		return m.ProvisionErr
	}
	m.Provisioned = true
	m.fp = fp
	return nil
}

// WriteFile implements Sandbox.
func (m *Mock) WriteFile(path, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Provisioned {
		return ErrNotProvisioned
	}
	m.Files[path] = content
	return nil
}

// ReadFile implements Sandbox.
func (m *Mock) ReadFile(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.Files[path]
	if !ok {
		return "", fmt.Errorf("file not found: %s", path)
	}
	return content, nil
}

// RunTests implements Sandbox.
func (m *Mock) RunTests(_ context.Context) (*TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Provisioned {
		return nil, ErrNotProvisioned
	}
	m.RunCount++
	if m.RunErr != nil {
		return nil, m.RunErr
	}
	if len(m.Results) == 0 {
		return &TestResult{Passed: true, Output: "ok"}, nil
	}
	idx := m.resultIdx
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	m.resultIdx++
	return m.Results[idx], nil
}

// Path implements Sandbox.
func (m *Mock) Path() string {
	if !m.Provisioned {
		return ""
	}
	return "/mock-sandbox"
}

// Cleanup implements Sandbox.
func (m *Mock) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CleanupCount++
	m.Provisioned = false
	return nil
}
